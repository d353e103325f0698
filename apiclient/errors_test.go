package apiclient_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-spendora-client/apiclient"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error field", 400, `{"error": "Invalid email or password."}`, "Invalid email or password."},
		{"detail field", 401, `{"detail": "No active account found with the given credentials"}`, "No active account found with the given credentials"},
		{"field errors sorted", 400, `{"password": ["This password is too common."], "email": ["user with this email already exists."]}`, "email: user with this email already exists.\npassword: This password is too common."},
		{"non field errors", 400, `{"non_field_errors": ["Invalid OTP."]}`, "Invalid OTP."},
		{"plain string body", 400, `"Too many attempts"`, "Too many attempts"},
		{"list body", 400, `["first", "second"]`, "first\nsecond"},
		{"html body", 500, `<html>Server Error</html>`, "fallback"},
		{"empty body", 502, ``, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.mux.HandleFunc("/x/", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			got := f.client.Get(context.Background(), "/x/", nil)
			require.True(t, apiclient.IsStatus(got, tt.status))
			require.Equal(t, tt.want, apiclient.Message(got, "fallback"))
			require.Equal(t, tt.status, apiclient.StatusCode(got))
		})
	}
}

func TestMessageFallbacks(t *testing.T) {
	require.Equal(t, "", apiclient.Message(nil, "fallback"))
	require.Equal(t, "fallback", apiclient.Message(errors.New("boom"), "fallback"))
	require.Zero(t, apiclient.StatusCode(errors.New("boom")))
}
