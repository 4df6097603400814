package supabase

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrymomot/accountkit/pkg/identity"
)

const authenticatedRole = "authenticated"

type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// verifyToken checks an access token signed with the project JWT secret.
// Anon and service-role keys are JWTs too and are rejected by role.
func (c *Client) verifyToken(token string) (*identity.User, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return c.jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.baseURL),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, identity.ErrUnauthenticated
	}
	if claims.Role != authenticatedRole || claims.Subject == "" {
		return nil, identity.ErrUnauthenticated
	}
	return &identity.User{ID: claims.Subject, Email: claims.Email}, nil
}
