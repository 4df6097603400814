package account

import (
	"github.com/dmitrymomot/accountkit/pkg/billing"
)

// PolicyError is a rejection that is shown to the user verbatim.
// Code is stable for API clients; Message is the display text.
type PolicyError struct {
	Code    string
	Message string
}

func (e *PolicyError) Error() string { return e.Message }

var (
	ErrConfirmationRequired = &PolicyError{Code: "confirmation_required", Message: "You must confirm account deletion."}
	ErrInvalidPassword      = &PolicyError{Code: "invalid_password", Message: "Invalid password."}
	ErrUnexpected           = &PolicyError{Code: "unexpected", Message: "Something went wrong. Please try again."}

	ErrPasswordMismatch = &PolicyError{Code: "password_mismatch", Message: "Passwords do not match."}
	ErrPasswordLength   = &PolicyError{Code: "password_length", Message: "Password must be between 12 and 72 characters."}
	ErrInvalidEmail     = &PolicyError{Code: "invalid_email", Message: "Please enter a valid email address."}
	ErrEmailTaken       = &PolicyError{Code: "email_taken", Message: "An account with this email already exists. Please log in."}
	ErrWeakPassword     = &PolicyError{Code: "weak_password", Message: "This password is not allowed. Please choose another one."}
	ErrInvalidLogin     = &PolicyError{Code: "invalid_login", Message: "Invalid email or password."}
	ErrResetLinkInvalid = &PolicyError{Code: "reset_link_invalid", Message: "Your reset link is invalid or has expired. Please request a new one."}
	ErrTooManyRequests  = &PolicyError{Code: "rate_limited", Message: "Too many requests. Please try again later."}
)

// PasswordResetSentMessage is shown after every reset request, whether or not
// the address is registered.
const PasswordResetSentMessage = "If an account exists for this email, a reset link has been sent."

// BlockedError is returned when deletion eligibility rules block the request.
type BlockedError struct {
	PolicyError
	Reason billing.BlockReason
}

// Unwrap exposes the embedded *PolicyError to errors.As.
func (e *BlockedError) Unwrap() error { return &e.PolicyError }

func blocked(d billing.Decision) *BlockedError {
	return &BlockedError{
		PolicyError: PolicyError{Code: "deletion_blocked_" + string(d.Reason), Message: d.Message()},
		Reason:      d.Reason,
	}
}
