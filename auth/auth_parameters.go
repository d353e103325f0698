package auth

import (
	"github.com/jrsteele09/go-spendora-client/token"
	"github.com/jrsteele09/go-spendora-client/verification"
)

// API paths, relative to the client's base address.
const (
	LoginPath         = "/auth/login/"
	RequestOTPPath    = "/auth/request-otp/"
	VerifyOTPPath     = "/auth/verify-otp/"
	ResetPasswordPath = "/auth/reset-password/"
	ProfilePath       = "/users/me/"
)

// loginRequest is the body of POST /auth/login/.
// Example: {"email": "a@b.com", "password": "..."}
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// otpRequest is the body of POST /auth/request-otp/. Names are only sent
// for registration.
// Example: {"email": "a@b.com", "verification_type": "registration", "first_name": "A", "last_name": "B"}
type otpRequest struct {
	Email            string `json:"email"`
	VerificationType string `json:"verification_type"`
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
}

// verifyRequest is the body of POST /auth/verify-otp/. For registration it
// carries the details the account is created from.
// Example: {"email": "a@b.com", "otp_code": "123456", "verification_type": "login"}
type verifyRequest struct {
	Email            string `json:"email"`
	OTPCode          string `json:"otp_code"`
	VerificationType string `json:"verification_type"`
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	Password         string `json:"password,omitempty"`
}

// resetRequest is the body of POST /auth/reset-password/.
type resetRequest struct {
	Email              string `json:"email"`
	OTPCode            string `json:"otp_code"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

// authResponse covers the answers of the login and verify endpoints: either
// a token pair or an indication that a code was sent instead.
type authResponse struct {
	Tokens           *token.Pair `json:"tokens"`
	RequiresOTP      bool        `json:"requires_otp"`
	OTPRequired      bool        `json:"otp_required"`
	VerificationType string      `json:"verification_type"`
	Message          string      `json:"message"`
}

func (r authResponse) hasTokens() bool {
	return r.Tokens != nil && r.Tokens.Access != ""
}

// needsLoginOTP reports whether a login answer is a step-up challenge.
func (r authResponse) needsLoginOTP() bool {
	if r.hasTokens() {
		return false
	}
	return r.RequiresOTP || r.OTPRequired || r.VerificationType == string(verification.TypeLogin)
}

func newOTPRequest(c verification.Challenge) otpRequest {
	req := otpRequest{Email: c.Email, VerificationType: string(c.Type())}
	if reg, ok := c.Purpose.(verification.Registration); ok {
		req.FirstName = reg.Data.FirstName
		req.LastName = reg.Data.LastName
	}
	return req
}

func newVerifyRequest(c verification.Challenge) verifyRequest {
	req := verifyRequest{Email: c.Email, OTPCode: c.OTP, VerificationType: string(c.Type())}
	if reg, ok := c.Purpose.(verification.Registration); ok {
		req.FirstName = reg.Data.FirstName
		req.LastName = reg.Data.LastName
		req.Password = reg.Data.Password
	}
	return req
}
