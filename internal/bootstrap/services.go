package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/triviahub/th-auth-api/config"
	"github.com/triviahub/th-auth-api/internal/adapters/authroles"
	"github.com/triviahub/th-auth-api/internal/adapters/cms"
	"github.com/triviahub/th-auth-api/internal/adapters/cookies"
	"github.com/triviahub/th-auth-api/internal/adapters/devbackend"
	redisadapter "github.com/triviahub/th-auth-api/internal/adapters/redis"
	"github.com/triviahub/th-auth-api/internal/data"
	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	"github.com/triviahub/th-auth-api/internal/observability/statsd"
	"github.com/triviahub/th-auth-api/internal/ports"
	"github.com/triviahub/th-auth-api/internal/service"
)

// ServiceDeps are the shared dependencies required to construct services.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// ServiceContainer holds the constructed service layer.
type ServiceContainer struct {
	Auth    *service.AuthService
	Tokens  ports.TokenStore
	Backend ports.Backend
	Limiter ports.RateLimiter
	Audit   *data.LoginAuditRepo
	Metrics *statsd.Client
}

// NewServices wires adapters into the auth service per configuration.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := buildBackend(cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := buildTokenStore(cfg)
	if err != nil {
		return nil, err
	}

	sink, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.HTTP.StatsdAddr != "",
		Address: cfg.HTTP.StatsdAddr,
		Prefix:  "triviahub.auth",
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("statsd client: %w", err)
	}

	var cache ports.ProfileCache
	var limiter ports.RateLimiter
	if deps.RedisClient != nil {
		if cfg.Auth.SessionCacheTTL > 0 {
			cache = redisadapter.NewProfileCache(deps.RedisClient)
		}
		if cfg.RateLimit.Enabled {
			limiter = redisadapter.NewRateLimiter(deps.RedisClient, redisadapter.LimiterConfig{
				Attempts: cfg.RateLimit.Attempts,
				Window:   cfg.RateLimit.Window,
			})
		}
	}

	var audit *data.LoginAuditRepo
	var auditPort ports.AuditRecorder
	if deps.DB != nil {
		audit = data.NewLoginAuditRepo(deps.DB)
		auditPort = audit
	}

	auth := service.NewAuthService(service.AuthServiceOptions{
		Backend:  backend,
		Cache:    cache,
		Limiter:  limiter,
		Audit:    auditPort,
		Roles:    authroles.NewStaticMapper(),
		Metrics:  sink,
		Logger:   logger,
		CacheTTL: cfg.Auth.SessionCacheTTL,
	})

	return &ServiceContainer{
		Auth:    auth,
		Tokens:  tokens,
		Backend: backend,
		Limiter: limiter,
		Audit:   audit,
		Metrics: sink,
	}, nil
}

//nolint:ireturn // the backend implementation is selected at runtime.
func buildBackend(cfg *config.AppConfig) (ports.Backend, error) {
	switch cfg.Backend.Mode {
	case config.BackendModeDev:
		backend, err := devbackend.New(devbackend.Config{
			UserEmail:     cfg.Backend.Dev.UserEmail,
			UserPassword:  cfg.Backend.Dev.UserPassword,
			AdminEmail:    cfg.Backend.Dev.AdminEmail,
			AdminPassword: cfg.Backend.Dev.AdminPassword,
			AdminRole:     domainauth.AdminRole(cfg.Backend.Dev.AdminRole),
			Roles:         authroles.NewStaticMapper(),
		})
		if err != nil {
			return nil, fmt.Errorf("dev backend: %w", err)
		}
		return backend, nil
	default:
		backend, err := cms.NewClient(cms.Config{
			BaseURL:    cfg.Backend.BaseURL,
			Timeout:    cfg.Backend.Timeout,
			RetryLimit: cfg.Backend.RetryLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("cms backend: %w", err)
		}
		return backend, nil
	}
}

//nolint:ireturn // hides the cookie store behind its port.
func buildTokenStore(cfg *config.AppConfig) (ports.TokenStore, error) {
	sameSite := http.SameSiteStrictMode
	if cfg.Auth.CookieSameSite == config.SameSiteLax {
		sameSite = http.SameSiteLaxMode
	}

	store, err := cookies.NewStore(cookies.Config{
		Domain:     cfg.HTTP.CookieDomain,
		Secure:     cfg.Auth.CookieSecure,
		SameSite:   sameSite,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("cookie store: %w", err)
	}
	return store, nil
}
