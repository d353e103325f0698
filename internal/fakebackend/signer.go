package fakebackend

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// hmacSigner issues and checks the backend's HS256 tokens.
type hmacSigner struct {
	secret  []byte
	nowTime func() time.Time
}

func newHMACSigner(secret string, nowTime func() time.Time) *hmacSigner {
	return &hmacSigner{secret: []byte(secret), nowTime: nowTime}
}

func (h *hmacSigner) Sign(claims jwtlib.MapClaims) (string, error) {
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("[hmacSigner.Sign] %w", err)
	}
	return signed, nil
}

// Parse verifies raw and checks it is of tokenType.
func (h *hmacSigner) Parse(raw, tokenType string) (jwtlib.MapClaims, error) {
	claims := jwtlib.MapClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, h.verificationKey,
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(h.nowTime),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("[hmacSigner.Parse] %w", err)
	}
	if got, _ := claims["token_type"].(string); got != tokenType {
		return nil, fmt.Errorf("[hmacSigner.Parse] token_type %q, want %q", got, tokenType)
	}
	return claims, nil
}

func (h *hmacSigner) verificationKey(token *jwtlib.Token) (any, error) {
	if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}
