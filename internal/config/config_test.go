package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-kyc-onboarding/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, v := range []string{"PORT", "MOCK_FAILURE_RATE", "ACCESS_TOKEN_EXPIRY", "STORAGE_BACKEND", "ALLOWED_ORIGINS", "ENV"} {
		t.Setenv(v, "")
	}
	c := config.New()

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, 0.1, c.GetFailureRate())
	require.Equal(t, time.Minute, c.GetDefaultAccessTokenExpiry())
	require.Equal(t, config.StorageFile, c.GetStorageBackend())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("http://localhost:8081"))
}

func TestOverrides(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("MOCK_FAILURE_RATE", "0")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "30s")
	t.Setenv("REFRESH_TOKEN_EXPIRY", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, *")
	c := config.New()

	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, 0.0, c.GetFailureRate())
	require.Equal(t, 30*time.Second, c.GetDefaultAccessTokenExpiry())
	require.Equal(t, 7*24*time.Hour, c.GetDefaultRefreshTokenExpiry())
	origins := c.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://a.example"))
	require.True(t, origins.IsAllowedOrigin("*"))
}
