// Package apiclient is the HTTP client every Spendora API call goes through.
//
// Outgoing requests carry the session's bearer token; a 401 response triggers
// one coordinated refresh of the access token followed by a single retry of the
// failed request.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/go-spendora-client/credentials"
	apperrors "github.com/jrsteele09/go-spendora-client/internal/errors"
	"github.com/jrsteele09/go-spendora-client/metrics"
	"github.com/jrsteele09/go-spendora-client/token"
)

const (
	DefaultRefreshPath    = "/token/refresh/"
	DefaultTimeout        = 30 * time.Second
	DefaultRefreshTimeout = 10 * time.Second

	maxResponseBody = 4 << 20
)

// AuthObserver is told when the client has given up on the current credentials.
type AuthObserver interface {
	// OnAuthError fires when a 401 could not be recovered because no refresh token was stored.
	OnAuthError()
	// OnRefreshFailed fires when the refresh exchange itself failed.
	OnRefreshFailed()
}

type nopObserver struct{}

func (nopObserver) OnAuthError()     {}
func (nopObserver) OnRefreshFailed() {}

// RequestHook may adjust each outgoing request after authorization has been applied.
type RequestHook func(*http.Request)

// Client sends API requests using shared Defaults and a credential Store.
type Client struct {
	defaults   *Defaults
	store      credentials.Store
	httpClient *http.Client
	observer   AuthObserver
	recorder   metrics.Recorder
	hooks      []RequestHook

	refreshPath    string
	refreshTimeout time.Duration
	expiryLeeway   time.Duration
	nowTime        func() time.Time

	// credMu keeps the stored access token and the default Authorization
	// header in step: writers hold it across both updates, request
	// construction holds it for reading.
	credMu sync.RWMutex
	// generation counts credential writes. A refresh only commits its result
	// if no login or logout happened while it was in flight.
	generation uint64
	refresh    singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func WithObserver(o AuthObserver) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

func WithRequestHook(h RequestHook) Option {
	return func(c *Client) {
		c.hooks = append(c.hooks, h)
	}
}

func WithRefreshPath(path string) Option {
	return func(c *Client) {
		c.refreshPath = path
	}
}

func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.refreshTimeout = d
	}
}

// WithExpiryLeeway sets how early TokenSource treats an access token as expired.
func WithExpiryLeeway(d time.Duration) Option {
	return func(c *Client) {
		c.expiryLeeway = d
	}
}

// WithNowTime overrides the clock used for expiry checks.
func WithNowTime(now func() time.Time) Option {
	return func(c *Client) {
		c.nowTime = now
	}
}

// New creates a Client. If the store already holds an access token the
// default Authorization header is primed from it.
func New(defaults *Defaults, store credentials.Store, opts ...Option) *Client {
	c := &Client{
		defaults:       defaults,
		store:          store,
		httpClient:     &http.Client{Timeout: DefaultTimeout},
		observer:       nopObserver{},
		recorder:       metrics.Nop{},
		refreshPath:    DefaultRefreshPath,
		refreshTimeout: DefaultRefreshTimeout,
		expiryLeeway:   10 * time.Second,
		nowTime:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if access, ok := store.Get(credentials.AccessTokenKey); ok && access != "" {
		defaults.SetHeader(headerAuthorization, token.Header(access))
	}
	return c
}

func (c *Client) Defaults() *Defaults {
	return c.defaults
}

// AccessToken returns the stored access token.
func (c *Client) AccessToken() (string, bool) {
	c.credMu.RLock()
	defer c.credMu.RUnlock()
	return c.accessToken()
}

func (c *Client) accessToken() (string, bool) {
	access, ok := c.store.Get(credentials.AccessTokenKey)
	if !ok || access == "" {
		return "", false
	}
	return access, true
}

// Authenticate stores a newly issued pair and makes it the default authorization.
// The header is updated even if the store fails, so the session keeps working
// in memory; the store error is returned for logging.
func (c *Client) Authenticate(pair token.Pair) error {
	c.credMu.Lock()
	defer c.credMu.Unlock()
	return c.authenticate(pair)
}

func (c *Client) authenticate(pair token.Pair) error {
	c.generation++
	var errs []error
	if err := c.store.Set(credentials.AccessTokenKey, pair.Access); err != nil {
		errs = append(errs, err)
	}
	if pair.Refresh != "" {
		if err := c.store.Set(credentials.RefreshTokenKey, pair.Refresh); err != nil {
			errs = append(errs, err)
		}
	}
	c.defaults.SetHeader(headerAuthorization, token.Header(pair.Access))

	if err := apperrors.Join(errs...); err != nil {
		return fmt.Errorf("[Client.Authenticate] storing credentials: %w", err)
	}
	return nil
}

// SetAccessToken replaces only the access token.
func (c *Client) SetAccessToken(access string) error {
	return c.Authenticate(token.Pair{Access: access})
}

// ClearCredentials removes both tokens and the default Authorization header.
func (c *Client) ClearCredentials() {
	c.credMu.Lock()
	defer c.credMu.Unlock()
	c.clearCredentials()
}

func (c *Client) clearCredentials() {
	c.generation++
	for _, key := range []string{credentials.AccessTokenKey, credentials.RefreshTokenKey} {
		if err := c.store.Remove(key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to remove credential")
		}
	}
	c.defaults.DelHeader(headerAuthorization)
}

func (c *Client) credentialGeneration() uint64 {
	c.credMu.RLock()
	defer c.credMu.RUnlock()
	return c.generation
}

// authenticateIfCurrent stores pair only if no credential write happened
// since gen was read.
func (c *Client) authenticateIfCurrent(gen uint64, pair token.Pair) (bool, error) {
	c.credMu.Lock()
	defer c.credMu.Unlock()
	if c.generation != gen {
		return false, nil
	}
	return true, c.authenticate(pair)
}

// clearIfCurrent clears the credentials only if no credential write happened
// since gen was read.
func (c *Client) clearIfCurrent(gen uint64) bool {
	c.credMu.Lock()
	defer c.credMu.Unlock()
	if c.generation != gen {
		return false
	}
	c.clearCredentials()
	return true
}

// Do sends req. Non-2xx responses are returned as *HTTPError, failures to get
// any response as *TransportError. A 401 on a request that has not been
// retried yet goes through token refresh and is re-issued once, unless the
// request is Anonymous or carried its own Authorization header.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	req = req.clone()
	explicitAuth := req.Header.Get(headerAuthorization) != ""
	if req.Header.Get(headerRequestID) == "" {
		req.Header.Set(headerRequestID, uuid.NewString())
	}

	resp, sent, err := c.send(ctx, req)
	if err == nil {
		return resp, nil
	}
	if !IsStatus(err, http.StatusUnauthorized) || req.retried || req.Anonymous || explicitAuth {
		return nil, err
	}
	return c.recoverUnauthorized(ctx, req, sent, err)
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Call(ctx, &Request{Method: http.MethodGet, Path: path}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Call(ctx, &Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Call(ctx, &Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Call(ctx, &Request{Method: http.MethodDelete, Path: path}, nil)
}

// Call sends req and decodes a non-empty response body into out when out is not nil.
func (c *Client) Call(ctx context.Context, req *Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	return resp.Decode(out)
}

// send performs one round trip. It returns the access token the request
// actually carried so 401 recovery can tell whether it was already stale.
func (c *Client) send(ctx context.Context, req *Request) (*Response, string, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, "", err
	}
	sent := token.FromHeader(httpReq.Header.Get(headerAuthorization))

	for _, hook := range c.hooks {
		hook(httpReq)
	}

	start := time.Now()
	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.recorder.RecordRequest(req.Method, 0, time.Since(start))
		log.Debug().Err(err).
			Str("method", req.Method).
			Str("path", req.Path).
			Str("request_id", req.Header.Get(headerRequestID)).
			Msg("request failed without response")
		return nil, sent, &TransportError{Method: req.Method, URL: httpReq.URL.String(), Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		c.recorder.RecordRequest(req.Method, 0, time.Since(start))
		return nil, sent, &TransportError{Method: req.Method, URL: httpReq.URL.String(), Err: err}
	}

	latency := time.Since(start)
	c.recorder.RecordRequest(req.Method, res.StatusCode, latency)
	log.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", res.StatusCode).
		Dur("latency", latency).
		Bool("retry", req.retried).
		Str("request_id", req.Header.Get(headerRequestID)).
		Msg("api request")
	if e := log.Trace(); e.Enabled() {
		e.RawJSON("response", redactJSON(body)).Str("request_id", req.Header.Get(headerRequestID)).Msg("api response body")
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, sent, newHTTPError(req.Method, httpReq.URL.String(), res.StatusCode, body)
	}
	return &Response{StatusCode: res.StatusCode, Header: res.Header, Body: body}, sent, nil
}

// build applies the defaults and the authorization interceptor.
func (c *Client) build(ctx context.Context, req *Request) (*http.Request, error) {
	target, err := c.defaults.resolve(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("[Client.build] encoding request body: %w", err)
		}
		if e := log.Trace(); e.Enabled() {
			e.RawJSON("request", redactJSON(data)).Str("request_id", req.Header.Get(headerRequestID)).Msg("api request body")
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("[Client.build] %w", err)
	}

	c.credMu.RLock()
	defer c.credMu.RUnlock()

	httpReq.Header = c.defaults.Snapshot()
	for k, vs := range req.Header {
		httpReq.Header[k] = append([]string(nil), vs...)
	}
	if req.Anonymous {
		httpReq.Header.Del(headerAuthorization)
		return httpReq, nil
	}
	if httpReq.Header.Get(headerAuthorization) == "" {
		if access, ok := c.accessToken(); ok {
			httpReq.Header.Set(headerAuthorization, token.Header(access))
		}
	}
	return httpReq, nil
}
