package supabase

import (
	"errors"
	"fmt"
)

var (
	ErrMissingURL            = errors.New("supabase: project URL is required")
	ErrMissingAnonKey        = errors.New("supabase: anon key is required")
	ErrMissingServiceRoleKey = errors.New("supabase: service role key is required for admin operations")
)

// APIError is a non-2xx GoTrue response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase auth: status %d: %s: %s", e.Status, e.Code, e.Message)
}
