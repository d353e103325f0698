// Package fakebackend is an in-process stand-in for the Spendora API. It
// implements the authentication endpoints and the profile endpoint with
// in-memory state so the client can be exercised end to end.
package fakebackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const (
	LoginPath         = "/auth/login/"
	RequestOTPPath    = "/auth/request-otp/"
	VerifyOTPPath     = "/auth/verify-otp/"
	ResetPasswordPath = "/auth/reset-password/"
	RefreshPath       = "/token/refresh/"
	ProfilePath       = "/users/me/"
)

// User is an account known to the backend.
type User struct {
	ID        int64
	Email     string
	Password  string
	FirstName string
	LastName  string
	CreatedAt time.Time
}

type otpEntry struct {
	code     string
	verified bool
}

// Backend holds accounts, issued codes and tokens.
type Backend struct {
	signer *hmacSigner

	mu               sync.Mutex
	nowTime          func() time.Time
	users            map[string]*User
	otps             map[string]*otpEntry
	access           map[string]string
	refresh          map[string]string
	calls            map[string]int
	nextUserID       int64
	nextOTP          int
	tokenSeq         int
	loginRequiresOTP bool
	rotateRefresh    bool
	profileStatus    int
	refreshDelay     time.Duration
	failNext         map[string]int
	holds            map[string]*hold
}

type hold struct {
	arrived chan struct{}
	release chan struct{}
	once    sync.Once
}

// Option configures a Backend.
type Option func(*Backend)

// WithLoginOTP makes login answer with an OTP challenge instead of tokens.
func WithLoginOTP() Option {
	return func(b *Backend) {
		b.loginRequiresOTP = true
	}
}

// WithRefreshRotation issues a new refresh token on every refresh.
func WithRefreshRotation() Option {
	return func(b *Backend) {
		b.rotateRefresh = true
	}
}

// WithRefreshDelay slows the refresh endpoint down.
func WithRefreshDelay(d time.Duration) Option {
	return func(b *Backend) {
		b.refreshDelay = d
	}
}

func WithNowTime(now func() time.Time) Option {
	return func(b *Backend) {
		b.nowTime = now
	}
}

func New(opts ...Option) *Backend {
	b := &Backend{
		nowTime:    time.Now,
		users:      make(map[string]*User),
		otps:       make(map[string]*otpEntry),
		access:     make(map[string]string),
		refresh:    make(map[string]string),
		calls:      make(map[string]int),
		failNext:   make(map[string]int),
		holds:      make(map[string]*hold),
		nextUserID: 1,
		nextOTP:    123456,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.signer = newHMACSigner("fake-backend-secret", b.nowTime)
	return b
}

// Handler routes the API endpoints.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(b.countCalls, b.injectFaults)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login/", b.handleLogin)
		r.Post("/request-otp/", b.handleRequestOTP)
		r.Post("/verify-otp/", b.handleVerifyOTP)
		r.Post("/reset-password/", b.handleResetPassword)
	})
	r.Post(RefreshPath, b.handleRefresh)
	r.Get(ProfilePath, b.handleProfile)
	return r
}

func (b *Backend) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[r.URL.Path]++
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// injectFaults applies FailNext and Hold to the request they were set for.
func (b *Backend) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		h := b.holds[r.URL.Path]
		delete(b.holds, r.URL.Path)
		status := b.failNext[r.URL.Path]
		delete(b.failNext, r.URL.Path)
		b.mu.Unlock()

		if h != nil {
			close(h.arrived)
			<-h.release
		}
		if status != 0 {
			writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FailNext makes the next request to path answer with status instead of
// being handled.
func (b *Backend) FailNext(path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext[path] = status
}

// Hold parks the next request to path until release is called. arrived is
// closed once that request has reached the backend.
func (b *Backend) Hold(path string) (arrived <-chan struct{}, release func()) {
	h := &hold{arrived: make(chan struct{}), release: make(chan struct{})}
	b.mu.Lock()
	b.holds[path] = h
	b.mu.Unlock()
	return h.arrived, func() { h.once.Do(func() { close(h.release) }) }
}

// AddUser registers an account directly.
func (b *Backend) AddUser(email, password, firstName, lastName string) *User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(email, password, firstName, lastName)
}

func (b *Backend) addUserLocked(email, password, firstName, lastName string) *User {
	u := &User{
		ID:        b.nextUserID,
		Email:     email,
		Password:  password,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: b.nowTime().UTC(),
	}
	b.nextUserID++
	b.users[strings.ToLower(email)] = u
	return u
}

// User returns the account for email.
func (b *Backend) User(email string) (User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[strings.ToLower(email)]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// OTP returns the last code issued for verificationType and email.
func (b *Backend) OTP(verificationType, email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.otps[otpKey(verificationType, email)]; ok {
		return e.code
	}
	return ""
}

// Calls returns how many requests hit path.
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

// ExpireAccessTokens invalidates every issued access token.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = make(map[string]string)
}

// RevokeRefreshTokens invalidates every issued refresh token.
func (b *Backend) RevokeRefreshTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh = make(map[string]string)
}

// SetProfileStatus makes the profile endpoint answer with status for valid
// tokens. Zero restores normal behaviour.
func (b *Backend) SetProfileStatus(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profileStatus = status
}

func otpKey(verificationType, email string) string {
	return verificationType + ":" + strings.ToLower(email)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type otpRequest struct {
	Email            string `json:"email"`
	VerificationType string `json:"verification_type"`
	OTPCode          string `json:"otp_code"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Password         string `json:"password"`
}

type resetRequest struct {
	Email              string `json:"email"`
	OTPCode            string `json:"otp_code"`
	NewPassword        string `json:"new_password"`
	NewPasswordConfirm string `json:"new_password_confirm"`
}

type tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Email and password are required."})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	u, ok := b.users[strings.ToLower(req.Email)]
	if !ok || u.Password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password."})
		return
	}
	if b.loginRequiresOTP {
		b.issueOTPLocked("login", u.Email)
		writeJSON(w, http.StatusOK, map[string]any{
			"message":           "OTP sent to your email.",
			"requires_otp":      true,
			"verification_type": "login",
			"email":             u.Email,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": b.issueTokensLocked(u)})
}

func (b *Backend) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	_, exists := b.users[strings.ToLower(req.Email)]
	switch req.VerificationType {
	case "registration":
		if exists {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"user with this email already exists."}})
			return
		}
	case "login", "password_reset":
		if !exists {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "No account found with this email."})
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string][]string{"verification_type": {fmt.Sprintf("%q is not a valid choice.", req.VerificationType)}})
		return
	}

	b.issueOTPLocked(req.VerificationType, req.Email)
	writeJSON(w, http.StatusOK, map[string]string{"message": "OTP sent to your email."})
}

func (b *Backend) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := otpKey(req.VerificationType, req.Email)
	entry, ok := b.otps[key]
	if !ok || entry.code != req.OTPCode {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid or expired OTP."})
		return
	}

	switch req.VerificationType {
	case "registration":
		if req.Password == "" || req.FirstName == "" || req.LastName == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Registration details are incomplete."})
			return
		}
		delete(b.otps, key)
		u := b.addUserLocked(req.Email, req.Password, req.FirstName, req.LastName)
		writeJSON(w, http.StatusCreated, map[string]any{"message": "Account created.", "tokens": b.issueTokensLocked(u)})
	case "login":
		delete(b.otps, key)
		u := b.users[strings.ToLower(req.Email)]
		writeJSON(w, http.StatusOK, map[string]any{"tokens": b.issueTokensLocked(u)})
	default:
		entry.verified = true
		writeJSON(w, http.StatusOK, map[string]string{"message": "OTP verified."})
	}
}

func (b *Backend) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decode(w, r, &req) {
		return
	}
	if req.NewPassword != req.NewPasswordConfirm {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"new_password_confirm": {"Passwords do not match."}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	key := otpKey("password_reset", req.Email)
	entry, ok := b.otps[key]
	if !ok || entry.code != req.OTPCode || !entry.verified {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid or expired OTP."})
		return
	}
	u, ok := b.users[strings.ToLower(req.Email)]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "No account found with this email."})
		return
	}
	delete(b.otps, key)
	u.Password = req.NewPassword
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset."})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if !decode(w, r, &req) {
		return
	}
	if b.refreshDelay > 0 {
		time.Sleep(b.refreshDelay)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	email, ok := b.refresh[req.Refresh]
	if _, err := b.signer.Parse(req.Refresh, "refresh"); err != nil {
		ok = false
	}
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}
	u := b.users[email]
	access := b.signLocked(u, "access", 5*time.Minute)
	b.access[access] = email

	resp := map[string]string{"access": access}
	if b.rotateRefresh {
		delete(b.refresh, req.Refresh)
		rotated := b.signLocked(u, "refresh", 24*time.Hour)
		b.refresh[rotated] = email
		resp["refresh"] = rotated
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) handleProfile(w http.ResponseWriter, r *http.Request) {
	access := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	b.mu.Lock()
	defer b.mu.Unlock()

	email, ok := b.access[access]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Given token not valid for any token type",
			"code":   "token_not_valid",
		})
		return
	}
	if b.profileStatus != 0 {
		writeJSON(w, b.profileStatus, map[string]string{"error": http.StatusText(b.profileStatus)})
		return
	}

	u := b.users[email]
	writeJSON(w, http.StatusOK, map[string]any{
		"id":            u.ID,
		"email":         u.Email,
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"profile_image": nil,
		"created_at":    u.CreatedAt.Format(time.RFC3339Nano),
	})
}

func (b *Backend) issueOTPLocked(verificationType, email string) string {
	code := fmt.Sprintf("%06d", b.nextOTP%1000000)
	b.nextOTP++
	b.otps[otpKey(verificationType, email)] = &otpEntry{code: code}
	log.Info().Str("type", verificationType).Str("email", email).Str("code", code).Msg("otp issued")
	return code
}

func (b *Backend) issueTokensLocked(u *User) tokens {
	t := tokens{
		Access:  b.signLocked(u, "access", 5*time.Minute),
		Refresh: b.signLocked(u, "refresh", 24*time.Hour),
	}
	key := strings.ToLower(u.Email)
	b.access[t.Access] = key
	b.refresh[t.Refresh] = key
	return t
}

// signLocked issues a SimpleJWT-shaped token. The sequence number keeps
// tokens issued within the same second distinct.
func (b *Backend) signLocked(u *User, tokenType string, ttl time.Duration) string {
	b.tokenSeq++
	now := b.nowTime()
	claims := jwtlib.MapClaims{
		"token_type": tokenType,
		"user_id":    u.ID,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
		"jti":        fmt.Sprintf("%s-%d", tokenType, b.tokenSeq),
	}
	signed, err := b.signer.Sign(claims)
	if err != nil {
		panic(fmt.Sprintf("signing fake token: %v", err))
	}
	return signed
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Malformed request body."})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
