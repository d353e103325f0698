package token

import (
	"time"

	"golang.org/x/oauth2"
)

// TokenType is the authorization scheme the backend expects.
const TokenType = "Bearer"

// Pair is the credential pair issued by the backend on login or OTP verification.
// Access is short-lived and sent as "Authorization: Bearer <access>" on every
// authorized request. Refresh is long-lived and only ever sent to the refresh endpoint.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Complete reports whether both halves of the pair are present.
func (p Pair) Complete() bool {
	return p.Access != "" && p.Refresh != ""
}

// OAuth2 converts the pair into an oauth2.Token. Expiry comes from the access
// token's exp claim and is left zero (never expires) when it cannot be read.
func (p Pair) OAuth2() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  p.Access,
		TokenType:    TokenType,
		RefreshToken: p.Refresh,
	}
	if exp, ok := ExpiresAt(p.Access); ok {
		t.Expiry = exp
	}
	return t
}

// RefreshResponse is the body returned by the refresh endpoint. Refresh is only
// present when the backend rotates refresh tokens.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Header formats an access token as an Authorization header value.
func Header(access string) string {
	return TokenType + " " + access
}

// FromHeader extracts the token from a "Bearer <token>" header value.
func FromHeader(header string) string {
	const prefix = TokenType + " "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

// Expired reports whether access has an exp claim that is at or before now+leeway.
// Tokens without a readable exp are never considered expired here; the server decides.
func Expired(access string, now time.Time, leeway time.Duration) bool {
	exp, ok := ExpiresAt(access)
	if !ok {
		return false
	}
	return !now.Add(leeway).Before(exp)
}
