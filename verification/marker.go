package verification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-spendora-client/credentials"
	apperrors "github.com/jrsteele09/go-spendora-client/internal/errors"
)

// MarkerKey is where the password-reset marker is kept in its store.
const MarkerKey = "password_reset"

// Marker records a verified password-reset code so the reset can resume after
// the in-memory challenge is lost. There is only ever one.
type Marker struct {
	Email      string    `json:"email"`
	OTP        string    `json:"otp_code"`
	VerifiedAt time.Time `json:"verified_at"`
}

// Valid reports whether the marker is still inside its ttl at now.
func (m Marker) Valid(now time.Time, ttl time.Duration) bool {
	if m.Email == "" || m.OTP == "" || m.VerifiedAt.IsZero() {
		return false
	}
	return now.Before(m.VerifiedAt.Add(ttl))
}

// Challenge rebuilds the verified password-reset challenge.
func (m Marker) Challenge() Challenge {
	return NewPasswordReset(m.Email).WithOTP(m.OTP)
}

// MarkerStore keeps the marker in a credentials.Store separate from the
// session's tokens.
type MarkerStore struct {
	store credentials.Store
	ttl   time.Duration
}

func NewMarkerStore(store credentials.Store, ttl time.Duration) *MarkerStore {
	return &MarkerStore{store: store, ttl: ttl}
}

// Save replaces any existing marker.
func (ms *MarkerStore) Save(m Marker) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("[MarkerStore.Save] %w", err)
	}
	if err := ms.store.Set(MarkerKey, string(data)); err != nil {
		return fmt.Errorf("[MarkerStore.Save] %w", err)
	}
	return nil
}

// Load returns the marker if one exists and is valid at now. An expired or
// unreadable marker is removed.
func (ms *MarkerStore) Load(now time.Time) (Marker, error) {
	raw, ok := ms.store.Get(MarkerKey)
	if !ok {
		return Marker{}, apperrors.ErrNotFound
	}

	var m Marker
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		log.Warn().Err(err).Msg("discarding unreadable password reset marker")
		ms.Clear()
		return Marker{}, apperrors.ErrNotFound
	}
	if !m.Valid(now, ms.ttl) {
		ms.Clear()
		return Marker{}, apperrors.ErrMarkerExpired
	}
	return m, nil
}

func (ms *MarkerStore) Clear() {
	if err := ms.store.Remove(MarkerKey); err != nil {
		log.Warn().Err(err).Msg("failed to remove password reset marker")
	}
}
