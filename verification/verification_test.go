package verification_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-spendora-client/credentials"
	"github.com/jrsteele09/go-spendora-client/internal/config"
	apperrors "github.com/jrsteele09/go-spendora-client/internal/errors"
	"github.com/jrsteele09/go-spendora-client/verification"
)

func TestChallengePurpose(t *testing.T) {
	data := verification.RegistrationData{Email: "a@b.com", FirstName: "A", LastName: "B", Password: "Secret123!", ConfirmPassword: "Secret123!"}

	reg := verification.NewRegistration(data)
	require.Equal(t, verification.TypeRegistration, reg.Type())
	require.Equal(t, "a@b.com", reg.Email)
	require.Equal(t, data, reg.Purpose.(verification.Registration).Data)

	login := verification.NewLogin("a@b.com").WithOTP("123456")
	require.Equal(t, verification.TypeLogin, login.Type())
	require.Equal(t, "123456", login.OTP)

	require.Equal(t, verification.TypePasswordReset, verification.NewPasswordReset("a@b.com").Type())
	require.Equal(t, verification.Type(""), verification.Challenge{}.Type())

	t.Run("check", func(t *testing.T) {
		require.NoError(t, login.Check())
		require.ErrorIs(t, verification.Challenge{Purpose: verification.Login{}}.Check(), apperrors.ErrInvalidChallenge)
		require.ErrorIs(t, verification.Challenge{Email: "a@b.com"}.Check(), apperrors.ErrInvalidChallenge)
	})

	t.Run("parse type", func(t *testing.T) {
		p, err := verification.ParseType("password_reset")
		require.NoError(t, err)
		require.Equal(t, verification.PasswordReset{}, p)

		_, err = verification.ParseType("sms")
		require.ErrorIs(t, err, apperrors.ErrInvalidChallenge)
	})
}

func TestPasswordScore(t *testing.T) {
	tests := []struct {
		password string
		want     int
	}{
		{"", 0},
		{"abc", 0},
		{"abcdefgh", 1},
		{"Abcdefgh", 2},
		{"Abcdefg1", 3},
		{"Secret123!", 4},
		{"1!", 2},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, verification.PasswordScore(tt.password), tt.password)
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var vErr *verification.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.ErrorIs(t, err, apperrors.ErrValidation)
	return vErr.Fields
}

func TestValidator(t *testing.T) {
	v := verification.NewValidator(config.Verification{})

	t.Run("credentials", func(t *testing.T) {
		require.NoError(t, v.ValidateCredentials("a@b.com", "x"))
		require.Equal(t, map[string]string{
			verification.FieldEmail:    "Email is required",
			verification.FieldPassword: "Password is required",
		}, fieldsOf(t, v.ValidateCredentials(" ", "")))
		require.Equal(t, map[string]string{
			verification.FieldEmail: "Please enter a valid email address",
		}, fieldsOf(t, v.ValidateCredentials("not-an-email", "x")))
	})

	t.Run("registration", func(t *testing.T) {
		valid := verification.RegistrationData{Email: "a@b.com", FirstName: "A", LastName: "B", Password: "Secret123!", ConfirmPassword: "Secret123!"}
		require.NoError(t, v.ValidateRegistration(valid))

		require.Equal(t, map[string]string{
			verification.FieldFirstName:       "First name is required",
			verification.FieldLastName:        "Last name is required",
			verification.FieldEmail:           "Email is required",
			verification.FieldPassword:        "Password is required",
			verification.FieldConfirmPassword: "Passwords do not match",
		}, fieldsOf(t, v.ValidateRegistration(verification.RegistrationData{ConfirmPassword: "x"})))

		weak := valid
		weak.Password, weak.ConfirmPassword = "abcdefgh", "abcdefgh"
		require.Equal(t, map[string]string{
			verification.FieldPassword: "Please choose a stronger password",
		}, fieldsOf(t, v.ValidateRegistration(weak)))

		short := valid
		short.Password, short.ConfirmPassword = "Ab1!", "Ab1!"
		require.Equal(t, map[string]string{
			verification.FieldPassword: "Password must be at least 8 characters long",
		}, fieldsOf(t, v.ValidateRegistration(short)))
	})

	t.Run("new password", func(t *testing.T) {
		require.NoError(t, v.ValidateNewPassword("NewSecret1", "NewSecret1"))
		require.Contains(t, fieldsOf(t, v.ValidateNewPassword("NewSecret1", "Other")), verification.FieldConfirmPassword)
	})

	t.Run("otp", func(t *testing.T) {
		require.NoError(t, v.ValidateOTP("123456"))
		for _, bad := range []string{"", "12345", "1234567", "12a456", "١٢٣٤٥٦"} {
			require.Equal(t, map[string]string{
				verification.FieldOTP: "Please enter a valid 6-digit verification code",
			}, fieldsOf(t, v.ValidateOTP(bad)), bad)
		}
	})

	t.Run("error text", func(t *testing.T) {
		err := v.ValidateEmail("")
		require.EqualError(t, err, "validation failed: email: Email is required")
	})
}

func TestMarkerStore(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	ms := verification.NewMarkerStore(credentials.NewMemoryStore(), 10*time.Minute)

	_, err := ms.Load(now)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, ms.Save(verification.Marker{Email: "a@b.com", OTP: "654321", VerifiedAt: now}))

	m, err := ms.Load(now.Add(9 * time.Minute))
	require.NoError(t, err)
	require.Equal(t, "a@b.com", m.Email)
	require.Equal(t, verification.NewPasswordReset("a@b.com").WithOTP("654321"), m.Challenge())

	_, err = ms.Load(now.Add(10 * time.Minute))
	require.ErrorIs(t, err, apperrors.ErrMarkerExpired)

	// Expired markers are removed on read.
	_, err = ms.Load(now)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMarkerStoreDiscardsGarbage(t *testing.T) {
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Set(verification.MarkerKey, "{not json"))

	_, err := verification.NewMarkerStore(store, time.Minute).Load(time.Now())
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	_, ok := store.Get(verification.MarkerKey)
	require.False(t, ok)
}

func TestMarkerValid(t *testing.T) {
	now := time.Now()
	require.False(t, verification.Marker{}.Valid(now, time.Hour))
	require.True(t, verification.Marker{Email: "a@b.com", OTP: "1", VerifiedAt: now}.Valid(now, time.Second))
	require.False(t, verification.Marker{Email: "a@b.com", OTP: "1", VerifiedAt: now.Add(-time.Second)}.Valid(now, time.Second))
}

func TestResendThrottle(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	throttle := verification.NewResendThrottle(10*time.Minute, clock)

	reg := verification.NewRegistration(verification.RegistrationData{Email: "a@b.com"})
	reset := verification.NewPasswordReset("a@b.com")

	throttle.Sent(reg)

	now = now.Add(4 * time.Minute)
	ok, wait := throttle.Allow(reg)
	require.False(t, ok)
	require.InDelta(t, float64(6*time.Minute), float64(wait), float64(time.Second))

	// Another verification type for the same address has its own cooldown.
	ok, _ = throttle.Allow(reset)
	require.True(t, ok)

	now = now.Add(6*time.Minute + time.Second)
	ok, _ = throttle.Allow(reg)
	require.True(t, ok)

	// Checking alone does not start a cooldown.
	ok, _ = throttle.Allow(reg)
	require.True(t, ok)

	throttle.Sent(reg)
	ok, wait = throttle.Allow(reg)
	require.False(t, ok)
	require.InDelta(t, float64(10*time.Minute), float64(wait), float64(time.Second))
}

func TestResendThrottleDisabled(t *testing.T) {
	throttle := verification.NewResendThrottle(0, nil)
	c := verification.NewLogin("a@b.com")
	throttle.Sent(c)
	for i := 0; i < 3; i++ {
		ok, _ := throttle.Allow(c)
		require.True(t, ok)
	}
}
