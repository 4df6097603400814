// Package logger builds slog loggers configured by functional options and
// provides attribute helpers so that keys stay consistent across packages.
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "accountkit"),
//		logger.WithConfig(cfg.Log),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "billing event applied",
//		logger.EventID(ev.ID),
//		logger.UserID(userID),
//	)
//
// Context extractors run for every record, so values stored in the request
// context (request id) appear on every line logged with that context.
package logger
