// Package verification models the OTP step shared by registration, login and
// password reset, plus the input checks that run before anything is sent.
package verification

import (
	"fmt"

	apperrors "github.com/jrsteele09/go-spendora-client/internal/errors"
)

// Type is the wire value of verification_type.
type Type string

const (
	TypeRegistration  Type = "registration"
	TypeLogin         Type = "login"
	TypePasswordReset Type = "password_reset"
)

// Purpose says what a verified code unlocks. It is one of Registration,
// Login or PasswordReset.
type Purpose interface {
	Type() Type
	purpose()
}

// RegistrationData is what the user entered on the sign-up form. The account
// is only created when the OTP is verified, so it travels with the challenge.
type RegistrationData struct {
	Email           string
	FirstName       string
	LastName        string
	Password        string
	ConfirmPassword string
}

type Registration struct {
	Data RegistrationData
}

type Login struct{}

type PasswordReset struct{}

func (Registration) Type() Type  { return TypeRegistration }
func (Login) Type() Type         { return TypeLogin }
func (PasswordReset) Type() Type { return TypePasswordReset }

func (Registration) purpose()  {}
func (Login) purpose()         {}
func (PasswordReset) purpose() {}

// Challenge is the pending state between requesting a code and verifying it.
// It is never written to the credential store.
type Challenge struct {
	Email   string
	OTP     string
	Purpose Purpose
}

func NewRegistration(data RegistrationData) Challenge {
	return Challenge{Email: data.Email, Purpose: Registration{Data: data}}
}

func NewLogin(email string) Challenge {
	return Challenge{Email: email, Purpose: Login{}}
}

func NewPasswordReset(email string) Challenge {
	return Challenge{Email: email, Purpose: PasswordReset{}}
}

// WithOTP returns a copy of the challenge carrying code.
func (c Challenge) WithOTP(code string) Challenge {
	c.OTP = code
	return c
}

// Type returns the purpose's wire type, or "" for a challenge without one.
func (c Challenge) Type() Type {
	if c.Purpose == nil {
		return ""
	}
	return c.Purpose.Type()
}

// Check reports whether the challenge is complete enough to send.
func (c Challenge) Check() error {
	if c.Email == "" {
		return fmt.Errorf("[Challenge.Check] missing email: %w", apperrors.ErrInvalidChallenge)
	}
	if c.Purpose == nil {
		return fmt.Errorf("[Challenge.Check] missing verification type: %w", apperrors.ErrInvalidChallenge)
	}
	return nil
}

// ParseType maps a wire verification_type back to a Purpose. Registration
// comes back without data.
func ParseType(s string) (Purpose, error) {
	switch Type(s) {
	case TypeRegistration:
		return Registration{}, nil
	case TypeLogin:
		return Login{}, nil
	case TypePasswordReset:
		return PasswordReset{}, nil
	}
	return nil, fmt.Errorf("[verification.ParseType] unknown verification type %q: %w", s, apperrors.ErrInvalidChallenge)
}
