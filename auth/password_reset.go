package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/go-spendora-client/internal/errors"
	"github.com/jrsteele09/go-spendora-client/verification"
)

// RequestPasswordReset sends a password-reset code to email.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) Result {
	done := s.beginUserAction()
	defer done()

	email = strings.TrimSpace(email)
	if err := s.validator.ValidateEmail(email); err != nil {
		return s.invalid(err, "")
	}

	challenge := verification.NewPasswordReset(email)
	if err := s.sendOTP(ctx, challenge); err != nil {
		return s.failure("request_password_reset", err, MsgResetRequestFailed)
	}
	s.throttle.Sent(challenge)
	s.setPending(challenge, FlowPasswordResetPendingOTP)
	return Result{Success: true, RequiresOTP: true, Challenge: &challenge, Message: MsgResetCodeSent}
}

// ResetPassword sets a new password using a verified password-reset
// challenge. It does not sign the user in.
func (s *Service) ResetPassword(ctx context.Context, challenge verification.Challenge, newPassword, confirmPassword string) Result {
	done := s.beginUserAction()
	defer done()

	if _, ok := challenge.Purpose.(verification.PasswordReset); !ok || challenge.Check() != nil || challenge.OTP == "" {
		s.setError(MsgMissingResetInfo)
		return Result{Message: MsgMissingResetInfo}
	}
	if err := s.validator.ValidateNewPassword(newPassword, confirmPassword); err != nil {
		return s.invalid(err, "")
	}

	body := resetRequest{
		Email:              challenge.Email,
		OTPCode:            challenge.OTP,
		NewPassword:        newPassword,
		NewPasswordConfirm: confirmPassword,
	}
	if err := s.post(ctx, ResetPasswordPath, body, nil); err != nil {
		return s.failure("reset_password", err, MsgResetFailed)
	}

	s.markers.Clear()
	s.clearPending()
	s.recorder.RecordSessionEvent(eventPasswordReset)
	log.Info().Str("email", challenge.Email).Msg("password reset")
	return Result{Success: true, Message: MsgPasswordReset}
}

// ResumePasswordReset returns the verified password-reset challenge, from
// memory or, failing that, from a marker still inside its window.
func (s *Service) ResumePasswordReset() (verification.Challenge, bool) {
	s.mu.Lock()
	if s.flow == FlowPasswordResetVerified && s.pending != nil {
		c := *s.pending
		s.mu.Unlock()
		return c, true
	}
	s.mu.Unlock()

	marker, err := s.markers.Load(s.nowTime())
	if err != nil {
		if errors.Is(err, apperrors.ErrMarkerExpired) {
			log.Info().Msg("password reset verification expired")
		}
		return verification.Challenge{}, false
	}

	challenge := marker.Challenge()
	s.setPending(challenge, FlowPasswordResetVerified)
	return challenge, true
}
