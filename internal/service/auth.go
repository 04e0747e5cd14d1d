package service

// Package service orchestrates authentication flows: login, refresh, session
// resolution, and logout, with rate limiting, caching, and audit around the
// backend calls.

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	apperrors "github.com/triviahub/th-auth-api/internal/errors"
	"github.com/triviahub/th-auth-api/internal/observability/metrics"
	"github.com/triviahub/th-auth-api/internal/observability/statsd"
	"github.com/triviahub/th-auth-api/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Backend ports.Backend
	Cache   ports.ProfileCache
	Limiter ports.RateLimiter
	Audit   ports.AuditRecorder
	Roles   ports.RoleMapper
	Metrics statsd.Sink
	Logger  *slog.Logger

	// CacheTTL bounds how long validated identities are cached.
	CacheTTL time.Duration
}

// AuthService coordinates the backend, token refresh, identity caching, and
// the audit trail. Cookie handling stays in the HTTP layer.
type AuthService struct {
	backend  ports.Backend
	cache    ports.ProfileCache
	limiter  ports.RateLimiter
	audit    ports.AuditRecorder
	roles    ports.RoleMapper
	sink     statsd.Sink
	logger   *slog.Logger
	cacheTTL time.Duration

	refreshGroup singleflight.Group
	whoamiGroup  singleflight.Group
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &AuthService{
		backend:  opts.Backend,
		cache:    opts.Cache,
		limiter:  opts.Limiter,
		audit:    opts.Audit,
		roles:    opts.Roles,
		sink:     opts.Metrics,
		logger:   logger,
		cacheTTL: ttl,
	}
}

// LoginRequest carries one credential submission.
type LoginRequest struct {
	Audience   domainauth.Audience
	Identifier string
	Secret     string
	RemoteAddr string
}

// Login verifies credentials against the backend. Attempts are rate limited
// per identifier and remote address, and every outcome lands in the audit
// trail. Admin identities get their permission set expanded from the role
// table when the backend sends a bare role.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*ports.LoginResult, error) {
	start := time.Now()
	result, err := s.login(ctx, req)
	metrics.EmitAuth(s.sink, metrics.AuthMetric{
		Operation: "login",
		Audience:  req.Audience,
		Duration:  time.Since(start),
		Err:       err,
	})
	return result, err
}

func (s *AuthService) login(ctx context.Context, req LoginRequest) (*ports.LoginResult, error) {
	if !req.Audience.Valid() {
		return nil, apperrors.ValidationField("audience", "unknown audience")
	}
	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" {
		return nil, apperrors.ValidationField("identifier", "identifier is required")
	}
	if req.Secret == "" {
		return nil, apperrors.ValidationField("password", "password is required")
	}

	if limitErr := s.checkRateLimit(ctx, req); limitErr != nil {
		return nil, limitErr
	}

	result, err := s.backend.Login(ctx, ports.LoginInput{
		Audience:   req.Audience,
		Identifier: req.Identifier,
		Secret:     req.Secret,
	})
	if err != nil {
		s.record(ctx, domainauth.AuditEntry{
			Audience:   req.Audience,
			Identifier: req.Identifier,
			Event:      domainauth.AuditLoginFailure,
			ErrorCode:  string(apperrors.GetCode(err)),
			RemoteAddr: req.RemoteAddr,
		})
		return nil, err
	}

	if normErr := s.normalizeIdentity(&result.Identity); normErr != nil {
		return nil, normErr
	}

	s.record(ctx, domainauth.AuditEntry{
		Audience:   req.Audience,
		Identifier: req.Identifier,
		Event:      domainauth.AuditLoginSuccess,
		RemoteAddr: req.RemoteAddr,
	})
	s.cacheIdentity(ctx, req.Audience, result.Tokens.Access, result.Identity)

	return result, nil
}

// checkRateLimit consults the limiter. A limiter outage fails open: login
// availability wins over throttling precision.
func (s *AuthService) checkRateLimit(ctx context.Context, req LoginRequest) error {
	if s.limiter == nil {
		return nil
	}
	key := rateLimitKey(req)
	allowed, err := s.limiter.Allow(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "rate limiter unavailable, allowing attempt", "error", err)
		return nil
	}
	if !allowed {
		s.record(ctx, domainauth.AuditEntry{
			Audience:   req.Audience,
			Identifier: req.Identifier,
			Event:      domainauth.AuditLoginFailure,
			ErrorCode:  string(apperrors.ErrCodeRateLimited),
			RemoteAddr: req.RemoteAddr,
		})
		return apperrors.RateLimited("too many login attempts, try again later")
	}
	return nil
}

// RateLimitKey returns the limiter key for an identifier/address pair.
// Exposed so operational tooling can reset the same key the service uses.
func RateLimitKey(audience domainauth.Audience, identifier, remoteAddr string) string {
	return rateLimitKey(LoginRequest{Audience: audience, Identifier: identifier, RemoteAddr: remoteAddr})
}

func rateLimitKey(req LoginRequest) string {
	return string(req.Audience) + ":" + strings.ToLower(req.Identifier) + ":" + req.RemoteAddr
}

// Refresh exchanges the pair's refresh token for a new pair. Concurrent
// refreshes of the same token collapse into one backend call; every waiter
// gets the same rotated pair. A successful rotation evicts the superseded
// access token from the profile cache so Session stops vouching for it.
func (s *AuthService) Refresh(ctx context.Context, audience domainauth.Audience, old domainauth.TokenPair) (domainauth.TokenPair, error) {
	start := time.Now()
	pair, err := s.refresh(ctx, audience, old)
	metrics.EmitAuth(s.sink, metrics.AuthMetric{
		Operation: "refresh",
		Audience:  audience,
		Duration:  time.Since(start),
		Err:       err,
	})
	return pair, err
}

func (s *AuthService) refresh(ctx context.Context, audience domainauth.Audience, old domainauth.TokenPair) (domainauth.TokenPair, error) {
	if !audience.Valid() {
		return domainauth.TokenPair{}, apperrors.ValidationField("audience", "unknown audience")
	}
	if old.Refresh == "" {
		return domainauth.TokenPair{}, apperrors.RefreshInvalid("no refresh token")
	}

	key := string(audience) + ":" + digest(old.Refresh)
	v, err, _ := s.refreshGroup.Do(key, func() (any, error) {
		pair, backendErr := s.backend.Refresh(ctx, audience, old.Refresh)
		if backendErr != nil {
			return domainauth.TokenPair{}, backendErr
		}
		s.invalidateCached(ctx, audience, old.Access)
		s.record(ctx, domainauth.AuditEntry{
			Audience: audience,
			Event:    domainauth.AuditRefresh,
		})
		return pair, nil
	})
	if err != nil {
		return domainauth.TokenPair{}, err
	}
	return v.(domainauth.TokenPair), nil
}

// Session resolves an access token to an identity, via the cache when a
// recent validation exists. Concurrent misses for the same token collapse
// into a single whoami call.
func (s *AuthService) Session(ctx context.Context, audience domainauth.Audience, accessToken string) (domainauth.Identity, error) {
	start := time.Now()
	identity, err := s.session(ctx, audience, accessToken)
	metrics.EmitAuth(s.sink, metrics.AuthMetric{
		Operation: "session",
		Audience:  audience,
		Duration:  time.Since(start),
		Err:       err,
	})
	return identity, err
}

func (s *AuthService) session(ctx context.Context, audience domainauth.Audience, accessToken string) (domainauth.Identity, error) {
	if !audience.Valid() {
		return domainauth.Identity{}, apperrors.ValidationField("audience", "unknown audience")
	}
	if accessToken == "" {
		return domainauth.Identity{}, apperrors.TokenInvalid("no access token")
	}

	if s.cache != nil {
		cached, cacheErr := s.cache.Get(ctx, audience, accessToken)
		if cacheErr != nil {
			s.logger.WarnContext(ctx, "profile cache read failed", "error", cacheErr)
		} else if cached != nil {
			return *cached, nil
		}
	}

	key := string(audience) + ":" + digest(accessToken)
	v, err, _ := s.whoamiGroup.Do(key, func() (any, error) {
		identity, backendErr := s.backend.WhoAmI(ctx, audience, accessToken)
		if backendErr != nil {
			return domainauth.Identity{}, backendErr
		}
		if normErr := s.normalizeIdentity(&identity); normErr != nil {
			return domainauth.Identity{}, normErr
		}
		s.cacheIdentity(ctx, audience, accessToken, identity)
		return identity, nil
	})
	if err != nil {
		return domainauth.Identity{}, err
	}
	return v.(domainauth.Identity), nil
}

// Logout notifies the backend and drops local cache state. Backend failures
// are logged and swallowed; local cleanup must always succeed.
func (s *AuthService) Logout(ctx context.Context, audience domainauth.Audience, accessToken string) {
	start := time.Now()

	if accessToken != "" {
		if err := s.backend.Logout(ctx, audience, accessToken); err != nil {
			s.logger.WarnContext(ctx, "backend logout failed", "audience", audience, "error", err)
		}
		s.invalidateCached(ctx, audience, accessToken)
	}

	s.record(ctx, domainauth.AuditEntry{
		Audience: audience,
		Event:    domainauth.AuditLogout,
	})
	metrics.EmitAuth(s.sink, metrics.AuthMetric{
		Operation: "logout",
		Audience:  audience,
		Duration:  time.Since(start),
	})
}

// normalizeIdentity rejects inactive admins and fills in permission sets for
// backends that send only a role name. Sets coming back from the backend are
// kept as-is.
func (s *AuthService) normalizeIdentity(identity *domainauth.Identity) error {
	admin := identity.Admin
	if admin == nil {
		return nil
	}
	if !admin.Active {
		return apperrors.Unauthorized("admin account is deactivated")
	}
	if len(admin.Permissions) == 0 && s.roles != nil {
		admin.Permissions, admin.AllowedSections = s.roles.Expand(admin.Role)
	}
	return nil
}

func (s *AuthService) cacheIdentity(ctx context.Context, audience domainauth.Audience, accessToken string, identity domainauth.Identity) {
	if s.cache == nil || accessToken == "" {
		return
	}
	if err := s.cache.Set(ctx, audience, accessToken, identity, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "profile cache write failed", "error", err)
	}
}

// invalidateCached drops a no-longer-valid access token from the profile
// cache. Best-effort; the backend rejects the token either way.
func (s *AuthService) invalidateCached(ctx context.Context, audience domainauth.Audience, accessToken string) {
	if s.cache == nil || accessToken == "" {
		return
	}
	if err := s.cache.Invalidate(ctx, audience, accessToken); err != nil {
		s.logger.WarnContext(ctx, "profile cache invalidate failed", "error", err)
	}
}

func (s *AuthService) record(ctx context.Context, entry domainauth.AuditEntry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "audit record failed", "event", entry.Event, "error", err)
	}
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
