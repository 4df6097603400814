package handler

import (
	"errors"
	"net/http"
)

var ErrNilResponse = errors.New("handler returned nil response")

// HTTPError carries a status code and a stable machine-readable key.
type HTTPError struct {
	Code    int
	Key     string
	Message string
}

func (e HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Key
}

// NewHTTPError builds an HTTPError whose message defaults to the status text.
func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key, Message: http.StatusText(code)}
}

var (
	ErrBadRequest      = NewHTTPError(http.StatusBadRequest, "bad_request")
	ErrUnauthorized    = NewHTTPError(http.StatusUnauthorized, "unauthorized")
	ErrNotFound        = NewHTTPError(http.StatusNotFound, "not_found")
	ErrTooManyRequests = NewHTTPError(http.StatusTooManyRequests, "too_many_requests")
)
