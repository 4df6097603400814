// Package redis connects to Redis for the webhook event ledger.
//
// Config is read from REDIS_* environment variables. Connect retries the
// initial ping and reports configuration problems with dedicated sentinels:
//
//	client, err := redis.Connect(ctx, cfg)
//	if errors.Is(err, redis.ErrFailedToParseRedisConnString) {
//		// fix REDIS_URL
//	}
//	ledger := redisledger.New(client, redisledger.WithPrefix(cfg.KeyPrefix))
//
// Healthcheck plugs into the readiness endpoint.
package redis
