// Package auth holds the session state machine: who is signed in, and the
// login, registration, OTP and password-reset flows that get them there.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-spendora-client/apiclient"
	"github.com/jrsteele09/go-spendora-client/credentials"
	"github.com/jrsteele09/go-spendora-client/events"
	"github.com/jrsteele09/go-spendora-client/internal/config"
	"github.com/jrsteele09/go-spendora-client/metrics"
	"github.com/jrsteele09/go-spendora-client/token"
	"github.com/jrsteele09/go-spendora-client/users"
	"github.com/jrsteele09/go-spendora-client/verification"
)

// Session events reported to the metrics recorder.
const (
	eventLogin           = "login"
	eventLogout          = "logout"
	eventOTPRequested    = "otp_requested"
	eventOTPVerified     = "otp_verified"
	eventPasswordReset   = "password_reset"
	eventSessionExpired  = "session_expired"
	eventRefreshFailed   = "refresh_failed"
	eventProfileDegraded = "profile_degraded"
)

// Service owns the session. Operations are safe to call concurrently; none
// of them holds the session lock across a network call.
type Service struct {
	client      *apiclient.Client
	store       credentials.Store
	validator   *verification.Validator
	markers     *verification.MarkerStore
	throttle    *verification.ResendThrottle
	recorder    metrics.Recorder
	verifyCfg   config.VerificationConfig
	nowTime     func() time.Time
	unsubscribe func()

	mu           sync.Mutex
	state        State
	flow         Flow
	user         *users.User
	pending      *verification.Challenge
	lastError    string
	profileError string
	busy         int
	bootstrapped bool
	// epoch changes on every login and logout so a profile fetch that
	// outlives its session does not overwrite the next one.
	epoch uint64
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithMarkerStore sets where the password-reset marker is kept.
func WithMarkerStore(ms *verification.MarkerStore) ServiceOption {
	return func(s *Service) {
		s.markers = ms
	}
}

// WithResendThrottle replaces the default OTP resend throttle.
func WithResendThrottle(t *verification.ResendThrottle) ServiceOption {
	return func(s *Service) {
		s.throttle = t
	}
}

// WithVerificationConfig sets OTP length, password rules and windows.
func WithVerificationConfig(cfg config.VerificationConfig) ServiceOption {
	return func(s *Service) {
		s.verifyCfg = cfg
	}
}

func WithRecorder(r metrics.Recorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewService creates the session and subscribes it to bus. The session
// reports Loading until Bootstrap has run.
func NewService(client *apiclient.Client, store credentials.Store, bus *events.Bus, options ...ServiceOption) (*Service, error) {
	if client == nil {
		return nil, errors.New("[NewService] client is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] credential store is required")
	}
	if bus == nil {
		return nil, errors.New("[NewService] event bus is required")
	}

	s := &Service{
		client:    client,
		store:     store,
		recorder:  metrics.Nop{},
		verifyCfg: config.Verification{},
		nowTime:   time.Now,
		state:     StateAnonymous,
	}
	for _, opt := range options {
		opt(s)
	}

	s.validator = verification.NewValidator(s.verifyCfg)
	if s.markers == nil {
		s.markers = verification.NewMarkerStore(credentials.NewMemoryStore(), s.verifyCfg.GetPasswordResetWindow())
	}
	if s.throttle == nil {
		s.throttle = verification.NewResendThrottle(s.verifyCfg.GetOTPResendInterval(), s.nowTime)
	}

	s.unsubscribe = bus.Subscribe(s.handleSignal)
	return s, nil
}

// Close detaches the session from the event bus.
func (s *Service) Close() {
	s.unsubscribe()
}

// Session returns a snapshot of the current state.
func (s *Service) Session() Session {
	access, _ := s.store.Get(credentials.AccessTokenKey)
	refresh, _ := s.store.Get(credentials.RefreshTokenKey)

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Session{
		State:        s.state,
		Flow:         s.flow,
		AccessToken:  access,
		RefreshToken: refresh,
		Loading:      !s.bootstrapped || s.busy > 0,
		LastError:    s.lastError,
		ProfileError: s.profileError,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	if s.pending != nil {
		c := *s.pending
		snap.Pending = &c
	}
	return snap
}

// Bootstrap resolves the initial state from the credential store: a stored
// access token leads to a profile fetch, no token to an anonymous session.
func (s *Service) Bootstrap(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.bootstrapped = true
		s.mu.Unlock()
	}()

	if _, ok := s.client.AccessToken(); !ok {
		s.mu.Lock()
		s.state = StateAnonymous
		s.mu.Unlock()
		log.Debug().Msg("no stored credentials, starting anonymous")
		return
	}

	s.mu.Lock()
	s.state = StateInitializing
	s.mu.Unlock()
	log.Debug().Msg("stored credentials found, fetching profile")
	s.FetchProfile(ctx)
}

// FetchProfile loads the current user. A 401 ends the session; any other
// failure keeps the user signed in with a placeholder profile and
// ProfileError set.
func (s *Service) FetchProfile(ctx context.Context) bool {
	done := s.begin()
	defer done()

	epoch := s.sessionEpoch()
	resp, err := s.client.Do(ctx, &apiclient.Request{Method: http.MethodGet, Path: ProfilePath})
	var user *users.User
	if err == nil {
		user, err = users.Parse(resp.Body)
	}

	if err != nil && apiclient.IsStatus(err, http.StatusUnauthorized) {
		if s.sessionEpoch() != epoch {
			return false
		}
		log.Info().Msg("profile fetch unauthorized, logging out")
		s.Logout()
		return false
	}

	var placeholder *users.User
	if err != nil {
		placeholder = s.placeholderUser()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		log.Debug().Err(err).Msg("session changed while profile was loading, dropping result")
		return false
	}
	if err != nil {
		log.Err(err).Msg("failed to fetch profile")
		s.recorder.RecordSessionEvent(eventProfileDegraded)
		s.user = placeholder
		s.state = StateAuthenticated
		s.profileError = MsgProfileFailed
		return false
	}

	s.user = user
	s.state = StateAuthenticated
	s.profileError = ""
	log.Debug().Int64("user_id", user.ID).Msg("profile loaded")
	return true
}

// placeholderUser stands in for a profile that could not be loaded. The id
// is taken from the access token when it can be read.
func (s *Service) placeholderUser() *users.User {
	u := &users.User{IsAuthenticated: true}
	access, ok := s.client.AccessToken()
	if !ok {
		return u
	}
	claims, err := token.ParseClaims(access)
	if err != nil {
		return u
	}
	if id, err := strconv.ParseInt(claims.User(), 10, 64); err == nil {
		u.ID = id
	}
	return u
}

// Logout clears credentials and returns to the anonymous state. LastError is
// left in place so a forced logout can explain itself. Calling it again has
// no further effect.
func (s *Service) Logout() {
	s.client.ClearCredentials()

	s.mu.Lock()
	wasAnonymous := s.state == StateAnonymous && s.user == nil
	s.epoch++
	s.user = nil
	s.state = StateAnonymous
	s.flow = FlowNone
	s.pending = nil
	s.profileError = ""
	s.mu.Unlock()

	if !wasAnonymous {
		s.recorder.RecordSessionEvent(eventLogout)
		log.Info().Msg("logged out")
	}
}

func (s *Service) handleSignal(sig events.Signal) {
	var msg, event string
	switch sig {
	case events.AuthError:
		msg, event = MsgSessionExpired, eventSessionExpired
	case events.TokenRefreshFailed:
		msg, event = MsgRefreshFailed, eventRefreshFailed
	default:
		return
	}

	log.Warn().Str("signal", string(sig)).Msg("credentials rejected, ending session")
	s.recorder.RecordSessionEvent(event)
	s.Logout()
	s.setError(msg)
}

// establish installs a freshly issued pair and loads the profile. It reports
// whether the session ended up authenticated.
func (s *Service) establish(ctx context.Context, pair token.Pair) bool {
	if err := s.client.Authenticate(pair); err != nil {
		log.Warn().Err(err).Msg("credentials could not be persisted, continuing in memory")
	}

	s.mu.Lock()
	s.epoch++
	s.state = StateInitializing
	s.flow = FlowNone
	s.pending = nil
	s.mu.Unlock()
	s.recorder.RecordSessionEvent(eventLogin)

	s.FetchProfile(ctx)
	return s.Session().State == StateAuthenticated
}

func (s *Service) sessionEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// begin marks an operation in flight for Loading.
func (s *Service) begin() func() {
	s.mu.Lock()
	s.busy++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.busy--
		s.mu.Unlock()
	}
}

// beginUserAction is begin for operations that start by clearing LastError.
func (s *Service) beginUserAction() func() {
	s.setError("")
	return s.begin()
}

func (s *Service) setError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
}

func (s *Service) setPending(c verification.Challenge, flow Flow) {
	s.mu.Lock()
	s.flow = flow
	s.pending = &c
	s.mu.Unlock()
}

func (s *Service) clearPending() {
	s.mu.Lock()
	s.flow = FlowNone
	s.pending = nil
	s.mu.Unlock()
}

// post sends an unauthenticated request to one of the auth endpoints.
func (s *Service) post(ctx context.Context, path string, body, out any) error {
	return s.client.Call(ctx, &apiclient.Request{
		Method:    http.MethodPost,
		Path:      path,
		Body:      body,
		Anonymous: true,
	}, out)
}

// failure records a request error as LastError.
func (s *Service) failure(op string, err error, fallback string) Result {
	msg := apiclient.Message(err, fallback)
	log.Warn().Err(err).Str("op", op).Int("status", apiclient.StatusCode(err)).Msg("request failed")
	s.setError(msg)
	return Result{Message: msg}
}

// invalid records a validation failure. With no message given, a single
// field's message is used, otherwise a generic one.
func (s *Service) invalid(err error, message string) Result {
	var fields map[string]string
	var vErr *verification.ValidationError
	if errors.As(err, &vErr) {
		fields = vErr.Fields
	}
	if message == "" {
		message = MsgFixForm
		if len(fields) == 1 {
			for _, m := range fields {
				message = m
			}
		}
	}
	s.setError(message)
	return Result{Message: message, Fields: fields}
}
