// Package config loads env-tagged structs with caarlos0/env after reading an
// optional .env file with godotenv.
//
// Every package owns its Config struct; the command composes them:
//
//	type Config struct {
//		App  app.Config
//		HTTP httpserver.Config
//		PG   pg.Config
//	}
//
//	cfg, err := config.Parse[Config]()
//
// Load caches the parsed value per type for code that reads configuration
// from several places.
package config
