package config

import "time"

type VerificationConfig interface {
	GetOTPLength() int
	GetOTPResendInterval() time.Duration
	GetPasswordResetWindow() time.Duration
	GetMinPasswordLength() int
	GetMinPasswordScore() int
}

type Verification struct{}

var _ VerificationConfig = Verification{}

func (Verification) GetOTPLength() int {
	return 6
}

// GetOTPResendInterval is how long a user must wait before another code is sent.
// It matches the lifetime of an emailed code.
func (Verification) GetOTPResendInterval() time.Duration {
	return GetDuration("SPENDORA_OTP_RESEND_INTERVAL", 10*time.Minute)
}

func (Verification) GetPasswordResetWindow() time.Duration {
	return 10 * time.Minute
}

func (Verification) GetMinPasswordLength() int {
	return 8
}

// GetMinPasswordScore is the lowest accepted strength score (0-4).
func (Verification) GetMinPasswordScore() int {
	return 2
}
