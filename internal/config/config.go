package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings for the marketplace server.
type Config struct {
	ListenAddr string
	DBPath     string
	Env        string // development or production
	JWTSecret  string

	// Rate limiting (enforced in production mode, per-IP).
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Optional webhook fan-out for notifications. Empty disables it.
	NotifyWebhookURL string
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		DBPath:            getEnv("DB_PATH", "marketplace.db"),
		Env:               getEnv("APP_ENV", "development"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		RateLimitRequests: 100,
		RateLimitWindow:   time.Hour,
		NotifyWebhookURL:  os.Getenv("NOTIFY_WEBHOOK_URL"),
	}

	if cfg.Env != "development" && cfg.Env != "production" {
		return nil, fmt.Errorf("invalid APP_ENV %q", cfg.Env)
	}
	if cfg.Env == "production" && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret"
	}

	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_REQUESTS %q", v)
		}
		cfg.RateLimitRequests = n
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
		}
		cfg.RateLimitWindow = d
	}

	return cfg, nil
}

// Production reports whether the server runs with production hardening
// (rate limiting on, generic error messages).
func (c *Config) Production() bool {
	return c.Env == "production"
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
