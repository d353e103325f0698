package config

import (
	"os"
	"strings"
	"time"
)

const (
	appNameVar   = "APP_NAME"
	baseURLVar   = "SPENDORA_API_URL"
	folderEnvVar = "SPENDORA_DATA"
	logLevelVar  = "LOG_LEVEL"

	defaultBaseURL = "https://backend.spendora.space/api"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Spendora")
}

// GetAPIBaseURL returns the origin every backend path is resolved against,
// without a trailing slash (e.g. "https://backend.spendora.space/api").
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, defaultBaseURL), "/")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDuration parses envVar with time.ParseDuration, falling back to defaultValue
// when unset or malformed.
func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
