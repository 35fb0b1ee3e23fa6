package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	MockConfig
	StorageConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetEnv() string
	GetBaseURL() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// MockConfig tunes the simulated backend.
type MockConfig interface {
	GetLatencyScale() float64
	GetFailureRate() float64
	GetDemoUserID() string
	GetDemoUserEmail() string
	GetDemoUserName() string
	GetDemoUserPassword() string
}

type StorageConfig interface {
	GetStorageBackend() string
	GetRedisAddr() string
	GetStoragePassphrase() string
	GetRequestTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Mock
	Storage
}

func New() Config {
	return mainConfig{}
}
