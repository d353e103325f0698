package auth

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-spendora-client/verification"
)

// Login signs in with email and password. The backend either issues tokens,
// which establish the session, or asks for an OTP, in which case the result
// carries the login challenge to verify.
func (s *Service) Login(ctx context.Context, creds Credentials) Result {
	done := s.beginUserAction()
	defer done()

	creds.Email = strings.TrimSpace(creds.Email)
	if err := s.validator.ValidateCredentials(creds.Email, creds.Password); err != nil {
		msg := ""
		if creds.Email == "" || creds.Password == "" {
			msg = MsgCredentialsRequired
		}
		return s.invalid(err, msg)
	}

	var resp authResponse
	if err := s.post(ctx, LoginPath, loginRequest{Email: creds.Email, Password: creds.Password}, &resp); err != nil {
		return s.failure("login", err, MsgLoginFailed)
	}

	if resp.hasTokens() {
		if !s.establish(ctx, *resp.Tokens) {
			return s.sessionFailure(MsgLoginFailed)
		}
		log.Info().Str("email", creds.Email).Msg("logged in")
		return Result{Success: true}
	}

	if resp.needsLoginOTP() {
		challenge := verification.NewLogin(creds.Email)
		s.throttle.Sent(challenge)
		s.setPending(challenge, FlowLoginPendingOTP)
		s.recorder.RecordSessionEvent(eventOTPRequested)
		log.Info().Str("email", creds.Email).Msg("login requires OTP")

		msg := resp.Message
		if msg == "" {
			msg = MsgOTPSent
		}
		return Result{Success: true, RequiresOTP: true, Challenge: &challenge, Message: msg}
	}

	log.Warn().Msg("login response carried neither tokens nor an OTP challenge")
	s.setError(MsgLoginFailed)
	return Result{Message: MsgLoginFailed}
}

// sessionFailure reports an establish that ended without a session, keeping
// any message a forced logout already recorded.
func (s *Service) sessionFailure(fallback string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastError == "" {
		s.lastError = fallback
	}
	return Result{Message: s.lastError}
}
