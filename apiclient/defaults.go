package apiclient

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"
	headerRequestID     = "X-Request-ID"

	contentTypeJSON = "application/json"
)

// Defaults is the configuration applied to every outgoing request: the base
// address and the default header set, including Authorization once a session
// is established. It is created by the owner of the session and handed to the
// Client, so separate sessions never share header state.
type Defaults struct {
	baseURL string

	mu      sync.RWMutex
	headers http.Header
}

// NewDefaults returns defaults for baseURL with JSON content negotiation headers.
func NewDefaults(baseURL string) *Defaults {
	h := http.Header{}
	h.Set(headerContentType, contentTypeJSON)
	h.Set(headerAccept, contentTypeJSON)
	return &Defaults{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: h,
	}
}

func (d *Defaults) BaseURL() string {
	return d.baseURL
}

func (d *Defaults) Header(name string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.headers.Get(name)
}

func (d *Defaults) SetHeader(name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.headers.Set(name, value)
}

func (d *Defaults) DelHeader(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.headers.Del(name)
}

// Snapshot returns a copy of the default headers.
func (d *Defaults) Snapshot() http.Header {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.headers.Clone()
}

// resolve joins path onto the base address. Absolute URLs are used as-is.
func (d *Defaults) resolve(path string, query url.Values) (string, error) {
	raw := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		raw = d.baseURL + path
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("[Defaults.resolve] %w", err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
