package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-spendora-client/token"
)

// Request describes one API call. Body, when set, is sent as JSON.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	// Header is applied over the defaults. A request that sets its own
	// Authorization header gets a 401 back as-is; the stored credentials are
	// neither refreshed nor substituted for it.
	Header http.Header
	// Anonymous requests never carry an Authorization header and a 401 is
	// returned to the caller without attempting a refresh.
	Anonymous bool

	// retried is set once the request has been through 401 recovery and must
	// not enter it again.
	retried bool
}

// Retried reports whether the request has already been re-issued after a 401.
func (r *Request) Retried() bool {
	return r.retried
}

func (r *Request) clone() *Request {
	c := *r
	c.Header = r.Header.Clone()
	if c.Header == nil {
		c.Header = http.Header{}
	}
	return &c
}

func (r *Request) setBearer(access string) {
	if r.Header == nil {
		r.Header = http.Header{}
	}
	r.Header.Set(headerAuthorization, token.Header(access))
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Body) == 0 {
		return errors.New("[Response.Decode] empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("[Response.Decode] %w", err)
	}
	return nil
}
