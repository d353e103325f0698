package config

import "time"

type StoreType string

const (
	StoreMemory StoreType = "memory"
	StoreFile   StoreType = "file"
	StoreRedis  StoreType = "redis"
)

type StorageConfig interface {
	GetCredentialStore() StoreType
	GetCredentialPassphrase() string
	GetRedisAddr() string
	GetRedisPrefix() string
	GetRedisTTL() time.Duration
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetCredentialStore() StoreType {
	switch t := StoreType(GetEnv("SPENDORA_CREDENTIAL_STORE", string(StoreFile))); t {
	case StoreMemory, StoreFile, StoreRedis:
		return t
	default:
		return StoreFile
	}
}

// GetCredentialPassphrase enables at-rest encryption of the credential file when set.
func (Storage) GetCredentialPassphrase() string {
	return GetEnv("SPENDORA_CREDENTIAL_PASSPHRASE", "")
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Storage) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "spendora")
}

// GetRedisTTL bounds how long credentials live in Redis; zero keeps them until removed.
func (Storage) GetRedisTTL() time.Duration {
	return GetDuration("REDIS_TTL", 7*24*time.Hour)
}
