package token

import (
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	apperrors "github.com/jrsteele09/go-spendora-client/internal/errors"
)

// Claims are the fields the client reads from an access token. The signature is
// never checked on the client; only the backend can verify its own tokens.
type Claims struct {
	jwtlib.RegisteredClaims
	TokenType string `json:"token_type,omitempty"`
	UserID    any    `json:"user_id,omitempty"`
}

// User returns the user_id claim as a string, falling back to sub.
func (c *Claims) User() string {
	switch v := c.UserID.(type) {
	case nil:
		return c.Subject
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}

// ParseClaims decodes the payload of a JWT without verifying it.
func ParseClaims(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "[ParseClaims] empty token")
	}
	claims := &Claims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("[ParseClaims] %w: %w", apperrors.ErrInvalidToken, err)
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of raw, if it has one.
func ExpiresAt(raw string) (time.Time, bool) {
	claims, err := ParseClaims(raw)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
