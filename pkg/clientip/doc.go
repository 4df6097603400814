// Package clientip resolves the originating client address of a request.
//
// GetIP consults CF-Connecting-IP, DO-Connecting-IP, X-Forwarded-For and
// X-Real-IP before the TCP peer. Those headers are client controlled unless a
// proxy rewrites them, so Middleware only honours them when
// Config.TrustProxyHeaders is set. Rate limit keys read the stored address
// through GetIPFromContext.
package clientip
