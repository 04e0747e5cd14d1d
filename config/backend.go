package config

import (
	"fmt"
	"strings"
	"time"
)

// BackendMode selects which content backend implementation to use.
type BackendMode string

const (
	// BackendModeCMS talks to the real headless CMS over HTTP.
	BackendModeCMS BackendMode = "cms"
	// BackendModeDev uses the in-memory stub backend (development only).
	BackendModeDev BackendMode = "dev"
)

// UnmarshalText implements encoding.TextUnmarshaler for BackendMode.
func (m *BackendMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "cms", "dev":
		*m = BackendMode(v)
		return nil
	default:
		return fmt.Errorf("invalid BackendMode: %q (valid options: cms, dev)", v)
	}
}

// DevBackendConfig declares the identities the stub backend accepts.
// Used when BACKEND_MODE=dev for development and testing.
type DevBackendConfig struct {
	UserEmail     string `env:"USER_EMAIL"     envDefault:"player@example.com"`
	UserPassword  string `env:"USER_PASSWORD"  envDefault:"player"`
	AdminEmail    string `env:"ADMIN_EMAIL"    envDefault:"admin@example.com"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"admin"`
	AdminRole     string `env:"ADMIN_ROLE"     envDefault:"super_admin"`
}

// BackendConfig groups content backend configuration.
type BackendConfig struct {
	// Mode determines which backend implementation to use.
	Mode BackendMode `env:"MODE" envDefault:"cms"`

	// BaseURL is the content backend's base URL (e.g., "https://cms.internal").
	BaseURL string `env:"BASE_URL"`

	// Timeout is the per-request timeout for backend calls.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`

	// RetryLimit is the number of retries after a 5xx or transport failure.
	RetryLimit int `env:"RETRY_LIMIT" envDefault:"2"`

	// Dev configuration (used when Mode=dev).
	Dev DevBackendConfig `envPrefix:"DEV_"`
}

// Sanitize applies guardrails to backend configuration values.
func (b *BackendConfig) Sanitize() {
	b.BaseURL = strings.TrimRight(strings.TrimSpace(b.BaseURL), "/")
	if b.Timeout <= 0 {
		b.Timeout = 5 * time.Second
	}
	if b.RetryLimit < 0 {
		b.RetryLimit = 0
	}
	if b.Mode == "" {
		b.Mode = BackendModeCMS
	}
}
