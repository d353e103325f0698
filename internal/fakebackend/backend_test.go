package fakebackend_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-spendora-client/internal/fakebackend"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testFixture struct {
	backend *fakebackend.Backend
	server  *httptest.Server
	clock   *clock
}

func setupTestFixture(t *testing.T, opts ...fakebackend.Option) *testFixture {
	t.Helper()
	f := &testFixture{clock: &clock{now: time.Now()}}
	opts = append(opts, fakebackend.WithNowTime(f.clock.Now))
	f.backend = fakebackend.New(opts...)
	f.server = httptest.NewServer(f.backend.Handler())
	t.Cleanup(f.server.Close)
	return f
}

func (f *testFixture) post(t *testing.T, path string, body any) (int, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer res.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res.StatusCode, out
}

func (f *testFixture) login(t *testing.T) (access, refresh string) {
	t.Helper()
	f.backend.AddUser("ada@example.com", "secret-pass", "Ada", "Lovelace")
	status, body := f.post(t, fakebackend.LoginPath, map[string]string{"email": "ada@example.com", "password": "secret-pass"})
	require.Equal(t, http.StatusOK, status)
	tokens := body["tokens"].(map[string]any)
	return tokens["access"].(string), tokens["refresh"].(string)
}

func TestRefresh(t *testing.T) {
	f := setupTestFixture(t, fakebackend.WithRefreshRotation())
	access, refresh := f.login(t)

	status, body := f.post(t, fakebackend.RefreshPath, map[string]string{"refresh": refresh})
	require.Equal(t, http.StatusOK, status)
	require.NotEqual(t, access, body["access"])
	require.NotEqual(t, refresh, body["refresh"])

	// Rotated away.
	status, _ = f.post(t, fakebackend.RefreshPath, map[string]string{"refresh": refresh})
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestRefreshRejectsAccessTokens(t *testing.T) {
	f := setupTestFixture(t)
	access, _ := f.login(t)

	status, body := f.post(t, fakebackend.RefreshPath, map[string]string{"refresh": access})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "token_not_valid", body["code"])
}

func TestRefreshTokenExpires(t *testing.T) {
	f := setupTestFixture(t)
	_, refresh := f.login(t)

	f.clock.Advance(25 * time.Hour)
	status, _ := f.post(t, fakebackend.RefreshPath, map[string]string{"refresh": refresh})
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestRegistrationCodeIsSingleUse(t *testing.T) {
	f := setupTestFixture(t)

	status, _ := f.post(t, fakebackend.RequestOTPPath, map[string]string{
		"email": "grace@example.com", "verification_type": "registration",
		"first_name": "Grace", "last_name": "Hopper",
	})
	require.Equal(t, http.StatusOK, status)

	code := f.backend.OTP("registration", "grace@example.com")
	verify := map[string]string{
		"email": "grace@example.com", "verification_type": "registration", "otp_code": code,
		"first_name": "Grace", "last_name": "Hopper", "password": "secret-pass",
	}
	status, body := f.post(t, fakebackend.VerifyOTPPath, verify)
	require.Equal(t, http.StatusCreated, status)
	require.Contains(t, body, "tokens")

	u, ok := f.backend.User("grace@example.com")
	require.True(t, ok)
	require.Equal(t, "Grace", u.FirstName)

	status, _ = f.post(t, fakebackend.VerifyOTPPath, verify)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, 3, f.backend.Calls(fakebackend.VerifyOTPPath)+f.backend.Calls(fakebackend.RequestOTPPath))
}

func TestFailNextAppliesOnce(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.FailNext(fakebackend.RequestOTPPath, http.StatusServiceUnavailable)

	body := map[string]string{"email": "grace@example.com", "verification_type": "registration"}
	status, _ := f.post(t, fakebackend.RequestOTPPath, body)
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Empty(t, f.backend.OTP("registration", "grace@example.com"))

	status, _ = f.post(t, fakebackend.RequestOTPPath, body)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 2, f.backend.Calls(fakebackend.RequestOTPPath))
}

func TestHoldParksRequestUntilReleased(t *testing.T) {
	f := setupTestFixture(t)
	arrived, release := f.backend.Hold(fakebackend.LoginPath)

	done := make(chan int, 1)
	go func() {
		res, err := http.Post(f.server.URL+fakebackend.LoginPath, "application/json",
			bytes.NewReader([]byte(`{"email":"nobody@example.com","password":"x"}`)))
		if err != nil {
			done <- 0
			return
		}
		res.Body.Close()
		done <- res.StatusCode
	}()

	<-arrived
	select {
	case <-done:
		t.Fatal("held request completed before release")
	case <-time.After(20 * time.Millisecond):
	}
	release()
	require.Equal(t, http.StatusUnauthorized, <-done)
}
