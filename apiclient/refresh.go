package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-spendora-client/credentials"
	apperrors "github.com/jrsteele09/go-spendora-client/internal/errors"
	"github.com/jrsteele09/go-spendora-client/metrics"
	"github.com/jrsteele09/go-spendora-client/token"
)

const refreshKey = "refresh"

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// recoverUnauthorized handles a first 401 for req. sent is the access token
// the failed request carried and origErr the 401 itself, which is what the
// caller gets back if recovery fails.
func (c *Client) recoverUnauthorized(ctx context.Context, req *Request, sent string, origErr error) (*Response, error) {
	req.retried = true

	// Another request may have rotated the token while this one was in flight.
	if current, ok := c.AccessToken(); ok && sent != "" && current != sent {
		log.Debug().Str("path", req.Path).Msg("access token rotated while request was in flight, retrying")
		c.recorder.RecordRetry(metrics.RetryStaleToken)
		req.setBearer(current)
		return c.Do(ctx, req)
	}

	access, err := c.refreshAccessToken(ctx, sent)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, origErr
	}

	c.recorder.RecordRetry(metrics.RetryAfterRefresh)
	req.setBearer(access)
	return c.Do(ctx, req)
}

// refreshAccessToken joins the in-flight refresh or starts one. Every caller
// waiting at the same time gets the same result. stale is the access token
// the caller found wanting; if a refresh that finished just before this one
// started has already replaced it, the current token is returned as-is.
func (c *Client) refreshAccessToken(ctx context.Context, stale string) (string, error) {
	ch := c.refresh.DoChan(refreshKey, func() (any, error) {
		if current, ok := c.AccessToken(); ok && stale != "" && current != stale {
			return current, nil
		}
		return c.exchangeRefreshToken(ctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// exchangeRefreshToken runs once per refresh attempt. Cleanup and observer
// notification happen here so they fire once regardless of how many requests
// are waiting. If the credentials are replaced or cleared while the exchange
// is in flight, its outcome is dropped and the newer credentials stand.
func (c *Client) exchangeRefreshToken(ctx context.Context) (string, error) {
	gen := c.credentialGeneration()
	refreshToken, ok := c.store.Get(credentials.RefreshTokenKey)
	if !ok || refreshToken == "" {
		log.Warn().Msg("unauthorized and no refresh token stored, clearing credentials")
		if !c.clearIfCurrent(gen) {
			c.recorder.RecordRefresh(metrics.RefreshDiscarded)
			return "", apperrors.ErrCredentialsChanged
		}
		c.recorder.RecordRefresh(metrics.RefreshNoRefreshToken)
		c.observer.OnAuthError()
		return "", apperrors.ErrNoRefreshToken
	}

	// The exchange outlives the request that started it so that other
	// waiters are not failed by its cancellation.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
	defer cancel()

	resp, err := c.Do(rctx, &Request{
		Method:    http.MethodPost,
		Path:      c.refreshPath,
		Body:      refreshRequest{Refresh: refreshToken},
		retried:   true,
		Anonymous: true,
	})

	var out token.RefreshResponse
	if err == nil {
		err = resp.Decode(&out)
	}
	if err == nil && out.Access == "" {
		err = errors.New("refresh response has no access token")
	}
	if err != nil {
		if !c.clearIfCurrent(gen) {
			log.Debug().Err(err).Msg("token refresh failed after credentials changed, keeping them")
			c.recorder.RecordRefresh(metrics.RefreshDiscarded)
			return "", fmt.Errorf("%w: %w", apperrors.ErrCredentialsChanged, err)
		}
		log.Err(err).Msg("token refresh failed, clearing credentials")
		c.recorder.RecordRefresh(metrics.RefreshFailed)
		c.observer.OnRefreshFailed()
		return "", fmt.Errorf("%w: %w", apperrors.ErrRefreshFailed, err)
	}

	stored, err := c.authenticateIfCurrent(gen, token.Pair{Access: out.Access, Refresh: out.Refresh})
	if !stored {
		log.Debug().Msg("credentials changed during token refresh, dropping refreshed token")
		c.recorder.RecordRefresh(metrics.RefreshDiscarded)
		return "", apperrors.ErrCredentialsChanged
	}
	if err != nil {
		log.Warn().Err(err).Msg("refreshed token could not be persisted")
	}
	c.recorder.RecordRefresh(metrics.RefreshSuccess)
	log.Debug().Bool("rotated_refresh", out.Refresh != "").Msg("access token refreshed")
	return out.Access, nil
}
