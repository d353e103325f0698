package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-spendora-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("SPENDORA_API_URL", "")
	t.Setenv("SPENDORA_CREDENTIAL_STORE", "")
	c := config.New()

	require.Equal(t, "https://backend.spendora.space/api", c.GetAPIBaseURL())
	require.Equal(t, config.StoreFile, c.GetCredentialStore())
	require.Equal(t, 6, c.GetOTPLength())
	require.Equal(t, 10*time.Minute, c.GetPasswordResetWindow())
	require.Equal(t, "/token/refresh/", c.GetRefreshPath())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SPENDORA_API_URL", "http://localhost:8000/api/")
	t.Setenv("SPENDORA_CREDENTIAL_STORE", "redis")
	t.Setenv("SPENDORA_REFRESH_TIMEOUT", "3s")
	c := config.New()

	require.Equal(t, "http://localhost:8000/api", c.GetAPIBaseURL())
	require.Equal(t, config.StoreRedis, c.GetCredentialStore())
	require.Equal(t, 3*time.Second, c.GetRefreshTimeout())
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SPENDORA_CREDENTIAL_STORE", "floppy")
	t.Setenv("SPENDORA_REQUEST_TIMEOUT", "soon")
	c := config.New()

	require.Equal(t, config.StoreFile, c.GetCredentialStore())
	require.Equal(t, 30*time.Second, c.GetRequestTimeout())
}
