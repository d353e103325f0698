package errors

import (
	"errors"
	"fmt"
)

// Common error types for the Spendora client
var (
	// Input errors
	ErrValidation       = errors.New("validation failed")
	ErrInvalidChallenge = errors.New("invalid verification challenge")

	// Credential errors
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNoRefreshToken     = errors.New("no refresh token")
	ErrRefreshFailed      = errors.New("token refresh failed")
	ErrInvalidToken       = errors.New("invalid token")
	ErrCredentialsChanged = errors.New("credentials changed")

	// Transport errors
	ErrNetwork = errors.New("network unavailable")

	// Verification flow errors
	ErrThrottled     = errors.New("too many requests")
	ErrMarkerExpired = errors.New("verification expired")

	// Storage errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return errors.Join(errs...)
}
