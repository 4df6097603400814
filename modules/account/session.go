package account

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/accountkit/pkg/cookie"
	"github.com/dmitrymomot/accountkit/pkg/identity"
)

// DefaultSessionCookie is the cookie carrying the provider access token.
const DefaultSessionCookie = "accountkit_session"

// Sessions keeps the auth provider's access token in an encrypted cookie.
type Sessions struct {
	cookies *cookie.Manager
	name    string
}

func NewSessions(cookies *cookie.Manager, name string) *Sessions {
	if cookies == nil {
		panic("account: cookie manager is required")
	}
	if name == "" {
		name = DefaultSessionCookie
	}
	return &Sessions{cookies: cookies, name: name}
}

func (s *Sessions) Set(w http.ResponseWriter, accessToken string) error {
	return s.cookies.SetEncrypted(w, s.name, accessToken)
}

func (s *Sessions) Clear(w http.ResponseWriter) {
	s.cookies.Delete(w, s.name)
}

// TokenExtractor reads the access token for identity.Middleware.
// Unreadable cookies count as no session.
func (s *Sessions) TokenExtractor() identity.TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		token, err := s.cookies.GetEncrypted(r, s.name)
		if err != nil {
			if errors.Is(err, cookie.ErrCookieNotFound) {
				return "", identity.ErrMissingToken
			}
			return "", errors.Join(identity.ErrMissingToken, err)
		}
		return token, nil
	}
}
