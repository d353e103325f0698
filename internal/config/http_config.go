package config

import "time"

type HTTP struct{}

var _ HTTPConfig = HTTP{}

func (HTTP) GetRequestTimeout() time.Duration {
	return GetDuration("SPENDORA_REQUEST_TIMEOUT", 30*time.Second)
}

func (HTTP) GetRefreshTimeout() time.Duration {
	return GetDuration("SPENDORA_REFRESH_TIMEOUT", 10*time.Second)
}

func (HTTP) GetRefreshPath() string {
	return "/token/refresh/"
}
