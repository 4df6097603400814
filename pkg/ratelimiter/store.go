package ratelimiter

import (
	"context"
	"time"
)

// Store keeps bucket state. A negative remaining count means the tokens
// were not available and the request must be denied.
type Store interface {
	ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error)
	Reset(ctx context.Context, key string) error
}

// refill returns the token count after the intervals elapsed since last,
// and the new refill mark. Intervals are capped so a long idle bucket
// cannot overflow.
func refill(tokens int, last, now time.Time, config Config) (int, time.Time) {
	maxIntervals := int64(config.Capacity/config.RefillRate + 1)
	intervals := min(int64(now.Sub(last)/config.RefillInterval), maxIntervals)
	if intervals <= 0 {
		return tokens, last
	}
	return min(tokens+int(intervals)*config.RefillRate, config.Capacity), now
}
