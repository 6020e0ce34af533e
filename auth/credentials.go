package auth

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Credentials are the sign-in form values
type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Validate checks the credentials before they are sent to the gateway
func (c Credentials) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		switch fieldErrs[0].Field() {
		case "Email":
			return ErrMissingEmail
		case "Password":
			return ErrMissingPassword
		}
	}
	return err
}

// PasswordChange is the change-password form
type PasswordChange struct {
	Password     string `json:"password" validate:"required"`
	Confirmation string `json:"confirmation"`
}

func (p PasswordChange) Validate() error {
	if err := validate.Struct(p); err != nil {
		return ErrMissingPassword
	}
	if p.Confirmation != "" && p.Confirmation != p.Password {
		return ErrPasswordsDiffer
	}
	return nil
}
