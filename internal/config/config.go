package config

import "time"

type Config interface {
	EnvConfig
	HTTPConfig
	VerificationConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetDataFolder() string
	GetLogLevel() string
	GetEnv() string
}

type HTTPConfig interface {
	GetRequestTimeout() time.Duration
	GetRefreshTimeout() time.Duration
	GetRefreshPath() string
}

type mainConfig struct {
	EnvVars
	HTTP
	Verification
	Storage
}

func New() Config {
	return mainConfig{}
}
