package config

import "time"

// DBConfig contains PostgreSQL database configuration for the audit trail.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"triviahub"`
	Password string `env:"PASSWORD" envDefault:"triviahub"`
	Name     string `env:"NAME"     envDefault:"triviahub"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration for the profile cache and login
// rate limiter.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
}

// RateLimitConfig contains login rate limiting configuration.
type RateLimitConfig struct {
	// Enabled toggles login rate limiting.
	Enabled bool `env:"ENABLED" envDefault:"true"`

	// Attempts is the number of login attempts allowed per window.
	Attempts int `env:"ATTEMPTS" envDefault:"10"`

	// Window is the fixed rate limiting window.
	Window time.Duration `env:"WINDOW" envDefault:"1m"`
}

// Sanitize applies guardrails to rate limit configuration values.
func (r *RateLimitConfig) Sanitize() {
	if r.Attempts <= 0 {
		r.Attempts = 10
	}
	if r.Window <= 0 {
		r.Window = time.Minute
	}
}
