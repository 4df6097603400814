package clientip

import "net/http"

// Middleware stores the resolved client address in the request context.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	resolve := RemoteIP
	if cfg.TrustProxyHeaders {
		resolve = GetIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := SetIPToContext(r.Context(), resolve(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
