package config

import (
	"fmt"
	"strings"
	"time"
)

// SameSiteMode is the SameSite attribute applied to auth cookies.
type SameSiteMode string

const (
	// SameSiteStrict is the default; auth cookies are never sent cross-site.
	SameSiteStrict SameSiteMode = "strict"
	// SameSiteLax is an explicit relaxation for deployments that link into
	// the dashboard from external billing/email flows.
	SameSiteLax SameSiteMode = "lax"
)

// UnmarshalText implements encoding.TextUnmarshaler for SameSiteMode.
func (m *SameSiteMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "strict", "lax":
		*m = SameSiteMode(v)
		return nil
	default:
		return fmt.Errorf("invalid SameSiteMode: %q (valid options: strict, lax)", v)
	}
}

// AuthConfig groups cookie and session configuration.
type AuthConfig struct {
	// CookieSameSite is the SameSite attribute for all auth cookies.
	CookieSameSite SameSiteMode `env:"AUTH_COOKIE_SAMESITE" envDefault:"strict"`

	// CookieSecure marks auth cookies Secure. May only be disabled in
	// development; Validate rejects it otherwise.
	CookieSecure bool `env:"AUTH_COOKIE_SECURE" envDefault:"true"`

	// AccessTokenTTL bounds the access token cookie lifetime.
	AccessTokenTTL time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" envDefault:"15m"`

	// RefreshTokenTTL bounds the refresh token cookie lifetime.
	RefreshTokenTTL time.Duration `env:"AUTH_REFRESH_TOKEN_TTL" envDefault:"720h"`

	// SessionCacheTTL is how long a validated identity may be served from
	// cache before the backend whoami endpoint is consulted again.
	SessionCacheTTL time.Duration `env:"AUTH_SESSION_CACHE_TTL" envDefault:"60s"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.AccessTokenTTL <= 0 {
		a.AccessTokenTTL = 15 * time.Minute
	}
	if a.RefreshTokenTTL <= 0 {
		a.RefreshTokenTTL = 720 * time.Hour
	}
	if a.SessionCacheTTL < 0 {
		a.SessionCacheTTL = 0
	}
	if a.CookieSameSite == "" {
		a.CookieSameSite = SameSiteStrict
	}
}
