// Package requestid tags every request with a correlation id.
//
// Middleware accepts a client supplied X-Request-ID when it is short and
// made of [A-Za-z0-9_-]; anything else is replaced by a fresh UUIDv7.
// LoggerExtractor adds the id to every slog record logged with the request
// context.
package requestid
