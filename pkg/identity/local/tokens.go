package local

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer           = "accountkit-local"
	audienceSession  = "authenticated"
	audienceRecovery = "recovery"
)

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (p *Provider) issue(userID, email, audience string, ttl time.Duration) (string, time.Time, error) {
	now := p.now()
	exp := now.Add(ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

var errTokenRejected = errors.New("token rejected")

// parse validates signature, issuer and expiry, and checks that the token
// carries one of audiences.
func (p *Provider) parse(raw string, audiences ...string) (*claims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(raw, c,
		func(*jwt.Token) (any, error) { return p.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, err
	}
	if !slices.ContainsFunc(c.Audience, func(a string) bool { return slices.Contains(audiences, a) }) {
		return nil, errTokenRejected
	}
	return c, nil
}
