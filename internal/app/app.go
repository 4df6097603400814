// Package app wires configuration, backends and HTTP modules into one
// http.Handler for the accountkit server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/accountkit/pkg/billing"
	"github.com/dmitrymomot/accountkit/pkg/cookie"
	"github.com/dmitrymomot/accountkit/pkg/email"
	"github.com/dmitrymomot/accountkit/pkg/httpserver"
	"github.com/dmitrymomot/accountkit/pkg/identity"
	"github.com/dmitrymomot/accountkit/pkg/logger"
	"github.com/dmitrymomot/accountkit/pkg/metrics"
	"github.com/dmitrymomot/accountkit/pkg/ratelimiter"
	"github.com/dmitrymomot/accountkit/pkg/redis"
	accountsvc "github.com/dmitrymomot/accountkit/svc/account"
)

// Auth is what the account service needs from the auth driver.
type Auth interface {
	identity.Authenticator
	identity.AccountRemover
}

// App owns the opened backends. Close releases them.
type App struct {
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics
	handler http.Handler

	redis   *goredis.Client
	checks  []httpserver.Check
	closers []func(context.Context) error
}

// New validates cfg, opens the selected backends and builds the router.
// Backends opened before a failure are closed again.
func New(ctx context.Context, cfg Config, log *slog.Logger) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	a := &App{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(strings.ReplaceAll(cfg.Name, "-", "_")),
	}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	st, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}
	ledger, err := a.openLedger(ctx, st)
	if err != nil {
		return nil, err
	}
	provider, err := a.openProvider()
	if err != nil {
		return nil, err
	}
	mailer, err := email.New(cfg.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: email: %w", ErrInvalidConfig, err)
	}
	auth, err := a.openAuth(mailer)
	if err != nil {
		return nil, err
	}
	limiter, err := a.openLimiter(ctx)
	if err != nil {
		return nil, err
	}
	cookies, err := cookie.NewFromConfig(cfg.Cookie)
	if err != nil {
		return nil, fmt.Errorf("%w: cookie: %w", ErrInvalidConfig, err)
	}

	reconciler := billing.NewReconciler(st.entitlements, st.links, ledger, provider,
		billing.WithLogger(log),
		billing.WithClaimTTL(cfg.LedgerClaimTTL),
	)
	svc := accountsvc.New(auth, auth, st.entitlements, st.links,
		accountsvc.WithLogger(log),
		accountsvc.WithMailer(mailer, cfg.Email.SupportEmail),
	)

	a.handler = a.routes(routeDeps{
		auth:       auth,
		provider:   provider,
		reconciler: reconciler,
		stores:     st,
		service:    svc,
		cookies:    cookies,
		limiter:    limiter,
	})
	log.InfoContext(ctx, "application ready",
		logger.Component("app"),
		logger.Provider(provider.Name()),
		slog.String("store", cfg.StoreDriver),
		slog.String("ledger", cfg.LedgerDriver),
		slog.String("auth", cfg.AuthDriver),
	)
	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Metrics exposes the registry-backed collectors.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Close releases backends in reverse opening order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// redisClient connects on first use and is shared by the ledger and the
// rate limiter.
func (a *App) redisClient(ctx context.Context) (*goredis.Client, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	cfg, err := parseBackend[redis.Config]("redis")
	if err != nil {
		return nil, err
	}
	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: redis: %w", ErrBackend, err)
	}
	a.redis = client
	a.checks = append(a.checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
	a.onClose(func(context.Context) error { return client.Close() })
	return client, nil
}

func (a *App) openLimiter(ctx context.Context) (ratelimiter.RateLimiter, error) {
	var store ratelimiter.Store
	switch a.cfg.RateLimit.Store {
	case "redis":
		client, err := a.redisClient(ctx)
		if err != nil {
			return nil, err
		}
		store = ratelimiter.NewRedisStore(client, ratelimiter.WithRedisPrefix(a.redisPrefix()))
	default:
		mem := ratelimiter.NewMemoryStore()
		a.onClose(func(context.Context) error { mem.Close(); return nil })
		store = mem
	}
	limiter, err := ratelimiter.NewBucket(store, a.cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: rate limit: %w", ErrInvalidConfig, err)
	}
	return limiter, nil
}

func (a *App) redisPrefix() string {
	return a.cfg.Name + ":"
}
