package identity

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/accountkit/pkg/logger"
)

// TokenExtractorFunc pulls an access token out of a request.
type TokenExtractorFunc func(r *http.Request) (string, error)

// Middleware resolves the access token with auth and stores the user in the
// request context. Requests without a valid token pass through anonymously;
// handlers decide whether a user is required.
func Middleware(auth Authenticator, log *slog.Logger, extractors ...TokenExtractorFunc) func(http.Handler) http.Handler {
	if len(extractors) == 0 {
		extractors = []TokenExtractorFunc{BearerTokenExtractor}
	}
	if log == nil {
		log = logger.Discard()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := firstToken(r, extractors)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := auth.CurrentUser(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrUnauthenticated) {
					log.WarnContext(r.Context(), "failed to resolve session",
						logger.Component("identity"),
						logger.Error(err),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user, token)))
		})
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func firstToken(r *http.Request, extractors []TokenExtractorFunc) string {
	for _, extract := range extractors {
		if token, err := extract(r); err == nil && token != "" {
			return token
		}
	}
	return ""
}

// BearerTokenExtractor reads "Authorization: Bearer <token>".
func BearerTokenExtractor(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
