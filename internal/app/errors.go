package app

import "errors"

var (
	ErrInvalidConfig         = errors.New("invalid configuration")
	ErrLocalAuthInProduction = errors.New("AUTH_DRIVER=local is not allowed in production")
	ErrBackend               = errors.New("failed to open backend")
)
