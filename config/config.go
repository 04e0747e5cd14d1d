package config

import (
	"errors"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Cookie and session configuration
//   - backend.go: Content backend configuration
//   - database.go: Database and cache configuration
//   - http.go: HTTP server configuration
type AppConfig struct {
	// IsDev controls development mode behavior (relaxed cookie security,
	// stub backend availability). Set DEV=true or NODE_ENV=development.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Auth holds cookie and session configuration.
	Auth AuthConfig

	// Backend holds content backend configuration.
	Backend BackendConfig `envPrefix:"BACKEND_"`

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// RateLimit holds login rate limiting configuration.
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.detectDevMode()
	c.Auth.Sanitize()
	c.Backend.Sanitize()
	c.RateLimit.Sanitize()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback since the platform's frontend tooling
// sets it everywhere.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// Validate rejects configurations that are only acceptable in development.
// Insecure settings have no production fallback; startup fails instead.
func (c *AppConfig) Validate() error {
	if c.IsDev {
		return nil
	}
	if c.Backend.Mode == BackendModeDev {
		return errors.New("BACKEND_MODE=dev is not allowed outside development")
	}
	if c.Backend.BaseURL == "" {
		return errors.New("BACKEND_BASE_URL is required outside development")
	}
	if !c.Auth.CookieSecure {
		return errors.New("AUTH_COOKIE_SECURE=false is not allowed outside development")
	}
	return nil
}
