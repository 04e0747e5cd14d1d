package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the gateway (e.g., "https://play.example.com").
	// Used when generating absolute URLs in redirects and client defaults.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// CookieDomain is the domain for auth cookies.
	// Leave empty to use the request domain. The token store rejects values
	// that are bare public suffixes.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// EnableCSRF toggles the double-submit CSRF check on auth endpoints.
	// Disable only for non-browser API clients in development.
	EnableCSRF bool `env:"HTTP_ENABLE_CSRF" envDefault:"true"`

	// StatsdAddr is the UDP address for metric emission. Empty disables metrics.
	StatsdAddr string `env:"STATSD_ADDR" envDefault:""`
}
