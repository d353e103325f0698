package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/go-spendora-client/internal/errors"
	"github.com/jrsteele09/go-spendora-client/verification"
)

// Register validates the sign-up form and requests a registration code. No
// account exists until the code is verified, so the returned challenge
// carries everything needed to create it.
func (s *Service) Register(ctx context.Context, data verification.RegistrationData) Result {
	done := s.beginUserAction()
	defer done()

	data.Email = strings.TrimSpace(data.Email)
	data.FirstName = strings.TrimSpace(data.FirstName)
	data.LastName = strings.TrimSpace(data.LastName)
	if err := s.validator.ValidateRegistration(data); err != nil {
		return s.invalid(err, "")
	}

	challenge := verification.NewRegistration(data)
	if err := s.sendOTP(ctx, challenge); err != nil {
		return s.failure("register", err, MsgRegistrationFailed)
	}
	s.throttle.Sent(challenge)
	s.setPending(challenge, FlowRegistrationPendingOTP)
	log.Info().Str("email", data.Email).Msg("registration code requested")

	return Result{Success: true, RequiresOTP: true, Challenge: &challenge, Message: MsgOTPSent}
}

// RequestOTP asks the backend to send a code for challenge.
func (s *Service) RequestOTP(ctx context.Context, challenge verification.Challenge) Result {
	done := s.beginUserAction()
	defer done()

	if err := challenge.Check(); err != nil {
		log.Warn().Err(err).Msg("OTP requested for incomplete challenge")
		s.setError(MsgMissingVerification)
		return Result{Message: MsgMissingVerification}
	}

	if err := s.sendOTP(ctx, challenge); err != nil {
		return s.failure("request_otp", err, MsgOTPRequestFailed)
	}
	s.throttle.Sent(challenge)
	s.setPending(challenge, pendingFlow(challenge))
	return Result{Success: true, RequiresOTP: true, Challenge: &challenge, Message: MsgOTPSent}
}

// ResendOTP is RequestOTP limited to once per resend interval for the same
// email and verification type. Only a code that was actually sent starts the
// interval, so a failed resend can be retried straight away.
func (s *Service) ResendOTP(ctx context.Context, challenge verification.Challenge) Result {
	done := s.beginUserAction()
	defer done()

	if err := challenge.Check(); err != nil {
		s.setError(MsgMissingVerification)
		return Result{Message: MsgMissingVerification}
	}

	if ok, wait := s.throttle.Allow(challenge); !ok {
		msg := fmt.Sprintf(MsgResendWaitFormat, wait.Round(time.Second))
		log.Debug().Err(apperrors.ErrThrottled).Str("email", challenge.Email).Dur("wait", wait).Msg("resend refused")
		s.setError(msg)
		return Result{Message: msg}
	}

	if err := s.sendOTP(ctx, challenge); err != nil {
		return s.failure("resend_otp", err, MsgResendFailed)
	}
	s.throttle.Sent(challenge)
	s.setPending(challenge, pendingFlow(challenge))
	return Result{Success: true, RequiresOTP: true, Challenge: &challenge, Message: MsgOTPResent}
}

func (s *Service) sendOTP(ctx context.Context, challenge verification.Challenge) error {
	if err := s.post(ctx, RequestOTPPath, newOTPRequest(challenge), nil); err != nil {
		return err
	}
	s.recorder.RecordSessionEvent(eventOTPRequested)
	return nil
}

// VerifyOTP submits the code in challenge. Registration and login
// verification may return tokens, which establish the session exactly as
// Login does. A verified password-reset code is remembered so ResetPassword
// can follow, and the returned challenge is the one to pass to it.
func (s *Service) VerifyOTP(ctx context.Context, challenge verification.Challenge) Result {
	done := s.beginUserAction()
	defer done()

	if err := challenge.Check(); err != nil {
		log.Warn().Err(err).Msg("verification attempted for incomplete challenge")
		s.setError(MsgMissingVerification)
		return Result{Message: MsgMissingVerification}
	}
	challenge.OTP = strings.TrimSpace(challenge.OTP)
	if err := s.validator.ValidateOTP(challenge.OTP); err != nil {
		return s.invalid(err, "")
	}

	var resp authResponse
	if err := s.post(ctx, VerifyOTPPath, newVerifyRequest(challenge), &resp); err != nil {
		return s.failure("verify_otp", err, MsgOTPFailed)
	}
	s.recorder.RecordSessionEvent(eventOTPVerified)

	if _, ok := challenge.Purpose.(verification.PasswordReset); ok {
		marker := verification.Marker{Email: challenge.Email, OTP: challenge.OTP, VerifiedAt: s.nowTime()}
		if err := s.markers.Save(marker); err != nil {
			log.Warn().Err(err).Msg("password reset marker not saved")
		}
		s.setPending(challenge, FlowPasswordResetVerified)
		return Result{Success: true, Challenge: &challenge, Message: MsgVerified}
	}

	if resp.hasTokens() {
		if !s.establish(ctx, *resp.Tokens) {
			return s.sessionFailure(MsgOTPFailed)
		}
		log.Info().Str("email", challenge.Email).Str("type", string(challenge.Type())).Msg("verified and logged in")
		return Result{Success: true, Message: MsgVerified}
	}

	s.clearPending()
	if _, ok := challenge.Purpose.(verification.Registration); ok {
		return Result{Success: true, Message: MsgRegisteredPleaseLogin}
	}
	return Result{Success: true, Message: MsgVerified}
}
