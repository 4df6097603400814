package app

import (
	"fmt"
	"slices"
	"time"

	"github.com/dmitrymomot/accountkit/pkg/billing/paddle"
	"github.com/dmitrymomot/accountkit/pkg/billing/stripe"
	"github.com/dmitrymomot/accountkit/pkg/clientip"
	"github.com/dmitrymomot/accountkit/pkg/cookie"
	"github.com/dmitrymomot/accountkit/pkg/email"
	"github.com/dmitrymomot/accountkit/pkg/environment"
	"github.com/dmitrymomot/accountkit/pkg/httpserver"
	"github.com/dmitrymomot/accountkit/pkg/identity/local"
	"github.com/dmitrymomot/accountkit/pkg/logger"
	"github.com/dmitrymomot/accountkit/pkg/ratelimiter"
)

// Driver names accepted by Config.
const (
	ProviderStripe = "stripe"
	ProviderPaddle = "paddle"

	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"

	LedgerStore = "store"
	LedgerRedis = "redis"

	AuthSupabase = "supabase"
	AuthLocal    = "local"
)

// Config is the process configuration. Backend connection settings
// (PG_*, MONGODB_*, REDIS_*, SUPABASE_*) are read only for the drivers
// selected here.
type Config struct {
	Env             string        `env:"APP_ENV" envDefault:"development"`
	Name            string        `env:"APP_NAME" envDefault:"accountkit"`
	BaseURL         string        `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`
	BillingProvider string        `env:"BILLING_PROVIDER" envDefault:"stripe"`
	StoreDriver     string        `env:"STORE_DRIVER" envDefault:"postgres"`
	LedgerDriver    string        `env:"LEDGER_DRIVER" envDefault:"store"`
	LedgerClaimTTL  time.Duration `env:"LEDGER_CLAIM_TTL" envDefault:"10m"`
	AuthDriver      string        `env:"AUTH_DRIVER" envDefault:"supabase"`
	SessionCookie   string        `env:"SESSION_COOKIE" envDefault:"accountkit_session"`
	ReadyTimeout    time.Duration `env:"READY_CHECK_TIMEOUT" envDefault:"2s"`

	Log       logger.Config
	HTTP      httpserver.Config
	ClientIP  clientip.Config
	Cookie    cookie.Config
	RateLimit ratelimiter.Config
	Email     email.Config
	Stripe    stripe.Config
	Paddle    paddle.Config
	LocalAuth local.Config
}

// Validate checks driver names and refuses the local auth driver in production.
func (c Config) Validate() error {
	checks := []struct {
		env, value string
		allowed    []string
	}{
		{"BILLING_PROVIDER", c.BillingProvider, []string{ProviderStripe, ProviderPaddle}},
		{"STORE_DRIVER", c.StoreDriver, []string{StorePostgres, StoreMongo, StoreMemory}},
		{"LEDGER_DRIVER", c.LedgerDriver, []string{LedgerStore, LedgerRedis}},
		{"AUTH_DRIVER", c.AuthDriver, []string{AuthSupabase, AuthLocal}},
		{"RATE_LIMIT_STORE", c.RateLimit.Store, []string{"memory", "redis"}},
	}
	for _, ch := range checks {
		if !slices.Contains(ch.allowed, ch.value) {
			return fmt.Errorf("%w: %s=%q, want one of %v", ErrInvalidConfig, ch.env, ch.value, ch.allowed)
		}
	}
	if c.AuthDriver == AuthLocal && environment.IsProduction(c.Env) {
		return ErrLocalAuthInProduction
	}
	if c.StoreDriver == StoreMemory && environment.IsProduction(c.Env) {
		return fmt.Errorf("%w: STORE_DRIVER=memory is not allowed in production", ErrInvalidConfig)
	}
	return nil
}
