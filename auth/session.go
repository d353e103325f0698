package auth

import (
	"github.com/jrsteele09/go-spendora-client/users"
	"github.com/jrsteele09/go-spendora-client/verification"
)

// State is where the session is in its lifecycle.
type State int

const (
	// StateAnonymous has no user and no tokens.
	StateAnonymous State = iota
	// StateInitializing has tokens and is waiting on the profile.
	StateInitializing
	// StateAuthenticated has a user, possibly a placeholder if the profile could not be read.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// Flow is a verification sub-flow layered on top of State.
type Flow int

const (
	FlowNone Flow = iota
	FlowRegistrationPendingOTP
	FlowLoginPendingOTP
	FlowPasswordResetPendingOTP
	// FlowPasswordResetVerified means the reset code was accepted and a new
	// password can be submitted.
	FlowPasswordResetVerified
)

func (f Flow) String() string {
	switch f {
	case FlowNone:
		return "none"
	case FlowRegistrationPendingOTP:
		return "registration-pending-otp"
	case FlowLoginPendingOTP:
		return "login-pending-otp"
	case FlowPasswordResetPendingOTP:
		return "password-reset-pending-otp"
	case FlowPasswordResetVerified:
		return "password-reset-verified"
	}
	return "unknown"
}

func pendingFlow(c verification.Challenge) Flow {
	switch c.Purpose.(type) {
	case verification.Registration:
		return FlowRegistrationPendingOTP
	case verification.Login:
		return FlowLoginPendingOTP
	case verification.PasswordReset:
		return FlowPasswordResetPendingOTP
	}
	return FlowNone
}

// Session is a point-in-time copy of the session state. Tokens are read from
// the credential store when the snapshot is taken.
type Session struct {
	State        State
	Flow         Flow
	User         *users.User
	AccessToken  string
	RefreshToken string
	Loading      bool
	LastError    string
	ProfileError string
	Pending      *verification.Challenge
}

// IsAuthenticated reports whether a user is signed in, including a degraded
// session whose profile could not be loaded.
func (s Session) IsAuthenticated() bool {
	return s.State == StateAuthenticated && s.User != nil && s.User.IsAuthenticated
}

// Credentials is the login form.
type Credentials struct {
	Email    string
	Password string
}

// Result is what every session operation returns. Failures carry a message
// fit for the user; Fields holds per-field messages for input that failed
// validation before any request was made.
type Result struct {
	Success     bool
	Message     string
	RequiresOTP bool
	Challenge   *verification.Challenge
	Fields      map[string]string
}
