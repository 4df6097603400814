package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/accountkit/pkg/billing"
	"github.com/dmitrymomot/accountkit/pkg/billing/memstore"
	"github.com/dmitrymomot/accountkit/pkg/billing/mongostore"
	"github.com/dmitrymomot/accountkit/pkg/billing/paddle"
	"github.com/dmitrymomot/accountkit/pkg/billing/pgstore"
	"github.com/dmitrymomot/accountkit/pkg/billing/redisledger"
	"github.com/dmitrymomot/accountkit/pkg/billing/stripe"
	"github.com/dmitrymomot/accountkit/pkg/config"
	"github.com/dmitrymomot/accountkit/pkg/email"
	"github.com/dmitrymomot/accountkit/pkg/httpserver"
	"github.com/dmitrymomot/accountkit/pkg/identity/local"
	"github.com/dmitrymomot/accountkit/pkg/identity/supabase"
	"github.com/dmitrymomot/accountkit/pkg/logger"
	"github.com/dmitrymomot/accountkit/pkg/mongo"
	"github.com/dmitrymomot/accountkit/pkg/pg"
)

type stores struct {
	entitlements billing.EntitlementStore
	links        billing.CustomerLinkStore
	ledger       billing.Ledger
}

// parseBackend reads a driver-specific config from the environment.
func parseBackend[T any](name string) (T, error) {
	cfg, err := config.Parse[T]()
	if err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
	}
	return cfg, nil
}

func (a *App) openStores(ctx context.Context) (stores, error) {
	switch a.cfg.StoreDriver {
	case StoreMemory:
		s := memstore.New()
		return stores{entitlements: s, links: s, ledger: s}, nil

	case StoreMongo:
		cfg, err := parseBackend[mongo.Config]("mongo")
		if err != nil {
			return stores{}, err
		}
		client, err := mongo.New(ctx, cfg)
		if err != nil {
			return stores{}, fmt.Errorf("%w: mongo: %w", ErrBackend, err)
		}
		a.onClose(client.Disconnect)
		a.checks = append(a.checks, httpserver.Check{Name: "mongo", Fn: mongo.Healthcheck(client)})

		s := mongostore.New(client.Database(cfg.Database))
		if err := s.EnsureIndexes(ctx); err != nil {
			return stores{}, fmt.Errorf("%w: mongo indexes: %w", ErrBackend, err)
		}
		return stores{entitlements: s, links: s, ledger: s}, nil

	default:
		cfg, err := parseBackend[pg.Config]("postgres")
		if err != nil {
			return stores{}, err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return stores{}, fmt.Errorf("%w: postgres: %w", ErrBackend, err)
		}
		a.onClose(func(context.Context) error { pool.Close(); return nil })
		a.checks = append(a.checks, httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)})

		s := pgstore.New(pool)
		return stores{entitlements: s, links: s, ledger: s}, nil
	}
}

func (a *App) openLedger(ctx context.Context, st stores) (billing.Ledger, error) {
	if a.cfg.LedgerDriver != LedgerRedis {
		return st.ledger, nil
	}
	client, err := a.redisClient(ctx)
	if err != nil {
		return nil, err
	}
	return redisledger.New(client, redisledger.WithPrefix(a.redisPrefix())), nil
}

func (a *App) openProvider() (billing.Provider, error) {
	switch a.cfg.BillingProvider {
	case ProviderPaddle:
		creds, err := a.cfg.Paddle.Resolve()
		if err != nil {
			return nil, fmt.Errorf("%w: paddle: %w", ErrInvalidConfig, err)
		}
		return paddle.New(creds)
	default:
		creds, err := a.cfg.Stripe.Resolve()
		if err != nil {
			return nil, fmt.Errorf("%w: stripe: %w", ErrInvalidConfig, err)
		}
		return stripe.New(creds)
	}
}

func (a *App) openAuth(mailer email.EmailSender) (Auth, error) {
	if a.cfg.AuthDriver == AuthLocal {
		a.log.Warn("using in-memory local auth driver; accounts are lost on restart", logger.Component("app"))
		p, err := local.New(a.cfg.LocalAuth, mailer, local.WithLogger(a.log))
		if err != nil {
			return nil, fmt.Errorf("%w: local auth: %w", ErrInvalidConfig, err)
		}
		return p, nil
	}
	cfg, err := parseBackend[supabase.Config]("supabase")
	if err != nil {
		return nil, err
	}
	c, err := supabase.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: supabase: %w", ErrInvalidConfig, err)
	}
	if cfg.ServiceRoleKey == "" {
		a.log.Warn("SUPABASE_SERVICE_ROLE_KEY is not set; account deletion will fail", logger.Component("app"))
	}
	return c, nil
}

// Migrate applies the Postgres schema for the billing stores.
func Migrate(ctx context.Context, log *slog.Logger) error {
	cfg, err := parseBackend[pg.Config]("postgres")
	if err != nil {
		return err
	}
	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%w: postgres: %w", ErrBackend, err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, cfg, log); err != nil {
		return err
	}
	log.InfoContext(ctx, "migrations applied", logger.Component("migrate"))
	return nil
}
