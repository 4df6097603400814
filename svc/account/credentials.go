package account

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewPassword is a password chosen on the signup or reset form.
type NewPassword struct {
	Password string `validate:"min=12,max=72"`
	Confirm  string `validate:"eqfield=Password"`
}

// Validate reports a mismatch before a length violation.
func (p NewPassword) Validate() error {
	return policyFromValidation(validate.Struct(p))
}

// SignUpForm is the registration form.
type SignUpForm struct {
	Email string `validate:"required,email"`
	NewPassword
}

func (f SignUpForm) Validate() error {
	return policyFromValidation(validate.Struct(f))
}

func policyFromValidation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	failed := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		failed[fe.Field()] = true
	}
	switch {
	case failed["Confirm"]:
		return ErrPasswordMismatch
	case failed["Password"]:
		return ErrPasswordLength
	default:
		return ErrInvalidEmail
	}
}
