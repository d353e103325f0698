package apiclient

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-spendora-client/credentials"
	apperrors "github.com/jrsteele09/go-spendora-client/internal/errors"
	"github.com/jrsteele09/go-spendora-client/token"
)

type tokenSource struct {
	ctx    context.Context
	client *Client
}

// TokenSource exposes the session's credentials as an oauth2.TokenSource.
// An access token whose exp claim has passed is refreshed through the same
// single-flight exchange the 401 path uses.
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, client: c}
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	c := ts.client
	access, ok := c.AccessToken()
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}

	if token.Expired(access, c.nowTime(), c.expiryLeeway) {
		refreshed, err := c.refreshAccessToken(ts.ctx, access)
		if err != nil {
			return nil, err
		}
		access = refreshed
	}

	refresh, _ := c.store.Get(credentials.RefreshTokenKey)
	return token.Pair{Access: access, Refresh: refresh}.OAuth2(), nil
}
