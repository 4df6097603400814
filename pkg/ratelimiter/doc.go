// Package ratelimiter provides token bucket rate limiting with memory and
// Redis stores plus HTTP middleware.
//
// A Bucket allows bursts up to Config.Capacity and refills RefillRate tokens
// every RefillInterval. Denied requests do not consume tokens.
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//
//	limiter, err := ratelimiter.NewBucket(store, cfg)
//	if err != nil {
//		return err
//	}
//
//	r.With(ratelimiter.Middleware(limiter,
//		ratelimiter.Composite(ratelimiter.Static("login"), ratelimiter.ByClientIP),
//	)).Post("/auth/login", login)
//
// Use NewRedisStore when several instances must share buckets.
package ratelimiter
