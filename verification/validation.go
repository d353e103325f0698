package verification

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/jrsteele09/go-spendora-client/internal/config"
	apperrors "github.com/jrsteele09/go-spendora-client/internal/errors"
)

// Field names used in ValidationError.Fields. They match the backend's field keys.
const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirm_password"
	FieldFirstName       = "first_name"
	FieldLastName        = "last_name"
	FieldOTP             = "otp_code"
)

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// ValidationError carries field-local messages for input that never left the client.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrValidation
}

// Validator checks user input against the verification settings.
type Validator struct {
	otpLength         int
	minPasswordLength int
	minPasswordScore  int
}

// NewValidator creates a Validator from cfg.
func NewValidator(cfg config.VerificationConfig) *Validator {
	return &Validator{
		otpLength:         cfg.GetOTPLength(),
		minPasswordLength: cfg.GetMinPasswordLength(),
		minPasswordScore:  cfg.GetMinPasswordScore(),
	}
}

type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// ValidEmail reports whether email looks like an address.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// PasswordScore rates a password from 0 to 4: one point each for length of
// at least 8, mixed case, a digit and a special character.
func PasswordScore(password string) int {
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	score := 0
	if len(password) >= 8 {
		score++
	}
	if upper && lower {
		score++
	}
	if digit {
		score++
	}
	if specialPattern.MatchString(password) {
		score++
	}
	return score
}

// ValidateCredentials checks login input.
func (v *Validator) ValidateCredentials(email, password string) error {
	errs := fieldErrors{}
	if strings.TrimSpace(email) == "" || password == "" {
		if strings.TrimSpace(email) == "" {
			errs.add(FieldEmail, "Email is required")
		}
		if password == "" {
			errs.add(FieldPassword, "Password is required")
		}
		return errs.err()
	}
	if !ValidEmail(email) {
		errs.add(FieldEmail, "Please enter a valid email address")
	}
	return errs.err()
}

// ValidateEmail checks a standalone email field.
func (v *Validator) ValidateEmail(email string) error {
	errs := fieldErrors{}
	v.checkEmail(errs, email)
	return errs.err()
}

// ValidateRegistration checks the sign-up form.
func (v *Validator) ValidateRegistration(data RegistrationData) error {
	errs := fieldErrors{}
	if strings.TrimSpace(data.FirstName) == "" {
		errs.add(FieldFirstName, "First name is required")
	}
	if strings.TrimSpace(data.LastName) == "" {
		errs.add(FieldLastName, "Last name is required")
	}
	v.checkEmail(errs, data.Email)
	v.checkNewPassword(errs, data.Password, data.ConfirmPassword)
	return errs.err()
}

// ValidateNewPassword checks a new password and its confirmation.
func (v *Validator) ValidateNewPassword(password, confirm string) error {
	errs := fieldErrors{}
	v.checkNewPassword(errs, password, confirm)
	return errs.err()
}

// ValidateOTP checks that code is exactly the configured number of digits.
func (v *Validator) ValidateOTP(code string) error {
	errs := fieldErrors{}
	if len(code) != v.otpLength || strings.IndexFunc(code, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		errs.add(FieldOTP, fmt.Sprintf("Please enter a valid %d-digit verification code", v.otpLength))
	}
	return errs.err()
}

func (v *Validator) checkEmail(errs fieldErrors, email string) {
	switch {
	case strings.TrimSpace(email) == "":
		errs.add(FieldEmail, "Email is required")
	case !ValidEmail(email):
		errs.add(FieldEmail, "Please enter a valid email address")
	}
}

func (v *Validator) checkNewPassword(errs fieldErrors, password, confirm string) {
	switch {
	case password == "":
		errs.add(FieldPassword, "Password is required")
	case len(password) < v.minPasswordLength:
		errs.add(FieldPassword, fmt.Sprintf("Password must be at least %d characters long", v.minPasswordLength))
	case PasswordScore(password) < v.minPasswordScore:
		errs.add(FieldPassword, "Please choose a stronger password")
	}
	if password != confirm {
		errs.add(FieldConfirmPassword, "Passwords do not match")
	}
}
