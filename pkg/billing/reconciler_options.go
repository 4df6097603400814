package billing

import (
	"log/slog"
	"time"
)

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithClaimTTL sets how long an unfinished claim blocks redeliveries.
func WithClaimTTL(ttl time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if ttl > 0 {
			r.claimTTL = ttl
		}
	}
}
