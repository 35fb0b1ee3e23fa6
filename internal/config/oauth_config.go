package config

import "time"

type OAuthConfig interface {
	GetIssuer() string
	GetClientID() string
	GetRefreshTokenLength() int
	GetDefaultAccessTokenExpiry() time.Duration
	GetDefaultRefreshTokenExpiry() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetIssuer() string {
	return EnvVars{}.GetBaseURL()
}

// GetClientID is the audience of issued access tokens and the client id used on refresh.
func (OAuth) GetClientID() string {
	return GetEnv("CLIENT_ID", "kyc-mobile")
}

func (OAuth) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

// GetDefaultAccessTokenExpiry matches the demo backend: access tokens live for one minute.
func (OAuth) GetDefaultAccessTokenExpiry() time.Duration {
	return GetEnvDuration("ACCESS_TOKEN_EXPIRY", 1*time.Minute)
}

func (OAuth) GetDefaultRefreshTokenExpiry() time.Duration {
	return GetEnvDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour)
}
