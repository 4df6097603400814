package ratelimiter

import (
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrymomot/accountkit/pkg/clientip"
)

const maxKeyLength = 64

// KeyFunc extracts a rate limit key from the request. An empty key skips limiting.
type KeyFunc func(r *http.Request) string

// ByClientIP keys requests by the resolved client address.
func ByClientIP(r *http.Request) string {
	if ip := clientip.GetIPFromContext(r.Context()); ip != "" {
		return ip
	}
	return clientip.GetIP(r)
}

// Static returns a constant key, used to give each endpoint its own buckets.
func Static(key string) KeyFunc {
	return func(*http.Request) string { return key }
}

// Composite joins the non-empty keys with ":". Keys longer than 64 bytes
// are replaced by their FNV-1a hash.
func Composite(keyFuncs ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(keyFuncs))
		for _, fn := range keyFuncs {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}
		if len(parts) == 0 {
			return ""
		}
		combined := strings.Join(parts, ":")
		if len(combined) <= maxKeyLength {
			return combined
		}
		h := fnv.New64a()
		_, _ = h.Write([]byte(combined))
		return strconv.FormatUint(h.Sum64(), 36)
	}
}

// ErrorResponder writes the response for a denied request (result set, err nil)
// or a limiter failure (err set).
type ErrorResponder func(w http.ResponseWriter, r *http.Request, result *Result, err error)

type middlewareConfig struct {
	respond ErrorResponder
}

type MiddlewareOption func(*middlewareConfig)

func WithErrorResponder(fn ErrorResponder) MiddlewareOption {
	return func(c *middlewareConfig) {
		if fn != nil {
			c.respond = fn
		}
	}
}

func defaultResponder(w http.ResponseWriter, _ *http.Request, _ *Result, err error) {
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
}

// Middleware throttles requests per key. Rate limit headers are set on every
// limited response; denied requests also get Retry-After in whole seconds.
func Middleware(limiter RateLimiter, keyFunc KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{respond: defaultResponder}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := limiter.Allow(r.Context(), key)
			if err != nil {
				cfg.respond(w, r, nil, err)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, result.Remaining)))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed() {
				h.Set("Retry-After", strconv.Itoa(retryAfterSeconds(result)))
				cfg.respond(w, r, result, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(r *Result) int {
	d := r.RetryAfter()
	secs := int(d.Seconds())
	if d > 0 && float64(secs) < d.Seconds() {
		secs++
	}
	return max(1, secs)
}
