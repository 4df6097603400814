package ratelimiter

import (
	"fmt"
	"time"
)

// Config defines a token bucket. Env tags let the throttled endpoints share
// one bucket shape loaded at startup.
type Config struct {
	Capacity       int           `env:"RATE_LIMIT_BURST" envDefault:"5"`      // bucket size, the burst allowed per key
	RefillRate     int           `env:"RATE_LIMIT_REFILL" envDefault:"1"`     // tokens added per interval
	RefillInterval time.Duration `env:"RATE_LIMIT_INTERVAL" envDefault:"12s"` // how often tokens are added
	Store          string        `env:"RATE_LIMIT_STORE" envDefault:"memory"` // memory or redis
}

func (c Config) validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %d", ErrInvalidConfig, c.RefillRate)
	}
	if c.RefillInterval <= 0 {
		return fmt.Errorf("%w: refill interval must be positive, got %v", ErrInvalidConfig, c.RefillInterval)
	}
	return nil
}

// Result is the outcome of one bucket check.
type Result struct {
	Limit     int
	Remaining int // negative when the request was denied
	ResetAt   time.Time
}

func (r *Result) Allowed() bool {
	return r.Remaining >= 0
}

// RetryAfter is zero for allowed requests.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed() {
		return 0
	}
	return max(0, time.Until(r.ResetAt))
}
