package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("RATE_LIMIT_REQUESTS", "")
	t.Setenv("RATE_LIMIT_WINDOW", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "marketplace.db", cfg.DBPath)
	assert.Equal(t, "dev-secret", cfg.JWTSecret)
	assert.Equal(t, 100, cfg.RateLimitRequests)
	assert.Equal(t, time.Hour, cfg.RateLimitWindow)
	assert.False(t, cfg.Production())
}

func TestLoad_ProductionNeedsSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "super-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Production())
}

func TestLoad_Validation(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("APP_ENV", "development")
	t.Setenv("RATE_LIMIT_REQUESTS", "zero")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("RATE_LIMIT_REQUESTS", "25")
	t.Setenv("RATE_LIMIT_WINDOW", "30m")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.RateLimitRequests)
	assert.Equal(t, 30*time.Minute, cfg.RateLimitWindow)
}
