package identity

import "errors"

var (
	ErrUnauthenticated    = errors.New("identity: not authenticated")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrEmailTaken         = errors.New("identity: email already registered")
	ErrUserNotFound       = errors.New("identity: user not found")
	ErrRateLimited        = errors.New("identity: too many requests")
	ErrWeakPassword       = errors.New("identity: password rejected by provider")
	ErrProvider           = errors.New("identity: auth provider error")
	ErrMissingToken       = errors.New("identity: no access token in request")
)
