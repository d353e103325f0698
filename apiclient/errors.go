package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	apperrors "github.com/jrsteele09/go-spendora-client/internal/errors"
	"github.com/jrsteele09/go-spendora-client/internal/utils"
)

// NetworkMessage is shown when no response was received at all.
const NetworkMessage = "Unable to reach the server. Please check your connection."

// HTTPError represents a non-2xx HTTP response from the API.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	// Message is the backend's own message when the body carries one.
	Message string
}

func newHTTPError(method, url string, statusCode int, body []byte) *HTTPError {
	return &HTTPError{
		Method:     method,
		URL:        url,
		StatusCode: statusCode,
		Body:       body,
		Message:    extractMessage(body),
	}
}

func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, msg)
}

// Unwrap lets errors.Is match ErrUnauthorized for 401 responses.
func (e *HTTPError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return apperrors.ErrUnauthorized
	}
	return nil
}

// TransportError means the request never produced a response.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == apperrors.ErrNetwork
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0 when there is none.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// Message turns err into text fit for a user. Backend messages are preferred,
// field errors are joined one per line, a missing response yields
// NetworkMessage and anything else yields fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Message != "" {
			return httpErr.Message
		}
		return fallback
	}
	if errors.Is(err, apperrors.ErrNetwork) {
		return NetworkMessage
	}
	return fallback
}

var messageKeys = []string{"error", "detail", "message"}

func extractMessage(body []byte) string {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return ""
	}

	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		return strings.Join(utils.ToStringSlice(t), "\n")
	case map[string]any:
		for _, key := range messageKeys {
			if s, ok := t[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var lines []string
		for _, k := range keys {
			for _, msg := range utils.ToStringSlice(t[k]) {
				if k == "non_field_errors" {
					lines = append(lines, msg)
				} else {
					lines = append(lines, fmt.Sprintf("%s: %s", k, msg))
				}
			}
		}
		return strings.Join(lines, "\n")
	}
	return ""
}
