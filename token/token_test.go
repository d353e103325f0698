package token_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-spendora-client/internal/errors"
	"github.com/jrsteele09/go-spendora-client/token"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	s, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	raw := signed(t, jwtlib.MapClaims{
		"exp":        exp.Unix(),
		"user_id":    42,
		"token_type": "access",
	})

	claims, err := token.ParseClaims(raw)
	require.NoError(t, err)
	require.Equal(t, "42", claims.User())
	require.Equal(t, "access", claims.TokenType)
	require.True(t, exp.Equal(claims.ExpiresAt.Time))
}

func TestParseClaims_Invalid(t *testing.T) {
	_, err := token.ParseClaims("")
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = token.ParseClaims("not-a-jwt")
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, ok := token.ExpiresAt("opaque-token")
	require.False(t, ok)
}

func TestExpired(t *testing.T) {
	now := time.Now()
	past := signed(t, jwtlib.MapClaims{"exp": now.Add(-time.Minute).Unix()})
	future := signed(t, jwtlib.MapClaims{"exp": now.Add(time.Hour).Unix()})

	require.True(t, token.Expired(past, now, 0))
	require.False(t, token.Expired(future, now, 0))
	require.True(t, token.Expired(future, now, 2*time.Hour))
	require.False(t, token.Expired("opaque", now, 0))
}

func TestPairOAuth2(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access := signed(t, jwtlib.MapClaims{"exp": exp.Unix()})

	tok := token.Pair{Access: access, Refresh: "r"}.OAuth2()
	require.Equal(t, access, tok.AccessToken)
	require.Equal(t, "r", tok.RefreshToken)
	require.Equal(t, "Bearer", tok.TokenType)
	require.True(t, exp.Equal(tok.Expiry))
	require.True(t, tok.Valid())

	opaque := token.Pair{Access: "opaque", Refresh: "r"}.OAuth2()
	require.True(t, opaque.Expiry.IsZero())
}

func TestHeaderRoundTrip(t *testing.T) {
	require.Equal(t, "Bearer abc", token.Header("abc"))
	require.Equal(t, "abc", token.FromHeader("Bearer abc"))
	require.Equal(t, "", token.FromHeader("Basic abc"))
	require.Equal(t, "", token.FromHeader(""))
}

func TestPairComplete(t *testing.T) {
	require.True(t, token.Pair{Access: "a", Refresh: "r"}.Complete())
	require.False(t, token.Pair{Access: "a"}.Complete())
}
