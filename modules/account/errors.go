package account

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/accountkit/handler"
	"github.com/dmitrymomot/accountkit/pkg/identity"
	accountsvc "github.com/dmitrymomot/accountkit/svc/account"
)

// policyStatus maps a policy code to its HTTP status; unlisted codes are 422.
var policyStatus = map[string]int{
	accountsvc.ErrInvalidLogin.Code:     http.StatusUnauthorized,
	accountsvc.ErrInvalidPassword.Code:  http.StatusUnauthorized,
	accountsvc.ErrEmailTaken.Code:       http.StatusConflict,
	accountsvc.ErrResetLinkInvalid.Code: http.StatusBadRequest,
	accountsvc.ErrTooManyRequests.Code:  http.StatusTooManyRequests,
	accountsvc.ErrUnexpected.Code:       http.StatusInternalServerError,
}

// toHTTPError turns service errors into JSON error responses that carry
// the user-facing message.
func toHTTPError(err error) error {
	var blocked *accountsvc.BlockedError
	if errors.As(err, &blocked) {
		return handler.HTTPError{Code: http.StatusConflict, Key: blocked.Code, Message: blocked.Message}
	}
	var policy *accountsvc.PolicyError
	if errors.As(err, &policy) {
		status, ok := policyStatus[policy.Code]
		if !ok {
			status = http.StatusUnprocessableEntity
		}
		return handler.HTTPError{Code: status, Key: policy.Code, Message: policy.Message}
	}
	if errors.Is(err, identity.ErrUnauthenticated) {
		return handler.ErrUnauthorized
	}
	return err
}

// failure hands err to the route's error handler, which logs it and writes
// the JSON error envelope.
type failure struct{ err error }

func (f failure) Render(http.ResponseWriter, *http.Request) error { return f.err }

func fail(err error) handler.Response { return failure{err: toHTTPError(err)} }
