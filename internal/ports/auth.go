package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"net/http"
	"time"

	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
)

// LoginInput carries credentials for a login attempt.
type LoginInput struct {
	Audience   domainauth.Audience
	Identifier string
	Secret     string
}

// LoginResult is the backend's answer to a successful login.
type LoginResult struct {
	Tokens   domainauth.TokenPair
	Identity domainauth.Identity
}

// Backend delegates credential verification, token refresh, identity
// resolution, and logout notification to the content backend. The gateway
// never mints or inspects tokens itself.
type Backend interface {
	// Login verifies an identifier/secret pair for the given audience and
	// returns a token pair plus the resolved identity profile.
	Login(ctx context.Context, in LoginInput) (*LoginResult, error)

	// Refresh exchanges a refresh token for a new token pair. The returned
	// pair keeps the old refresh token when the backend does not rotate it.
	Refresh(ctx context.Context, audience domainauth.Audience, refreshToken string) (domainauth.TokenPair, error)

	// WhoAmI validates an access token and returns the identity it belongs to.
	WhoAmI(ctx context.Context, audience domainauth.Audience, accessToken string) (domainauth.Identity, error)

	// Logout notifies the backend that the token should be discarded.
	// Best-effort; callers log failures and proceed with local cleanup.
	Logout(ctx context.Context, audience domainauth.Audience, accessToken string) error
}

// TokenStore persists token pairs in per-audience HTTP cookies.
// Tokens for different audiences are never cross-readable.
type TokenStore interface {
	// Set writes the access, refresh, and presence cookies for the audience.
	Set(w http.ResponseWriter, audience domainauth.Audience, pair domainauth.TokenPair)

	// Get reads the audience's token pair from the request cookies.
	// The second return is false only when neither token cookie is present;
	// a surviving refresh cookie alone still counts so the refresh flow
	// works after the shorter-lived access cookie expires.
	Get(r *http.Request, audience domainauth.Audience) (domainauth.TokenPair, bool)

	// Clear expires all cookies for the audience. Idempotent.
	Clear(w http.ResponseWriter, audience domainauth.Audience)
}

// ProfileCache caches validated identities keyed by access token so repeated
// session checks do not hammer the backend's whoami endpoint.
type ProfileCache interface {
	Get(ctx context.Context, audience domainauth.Audience, accessToken string) (*domainauth.Identity, error)
	Set(ctx context.Context, audience domainauth.Audience, accessToken string, identity domainauth.Identity, ttl time.Duration) error
	Invalidate(ctx context.Context, audience domainauth.Audience, accessToken string) error
}

// RateLimiter bounds login attempts per key (identifier plus remote address).
type RateLimiter interface {
	// Allow reports whether another attempt is permitted for the key.
	Allow(ctx context.Context, key string) (bool, error)

	// Reset clears the counter for the key.
	Reset(ctx context.Context, key string) error
}

// AuditRecorder appends entries to the login audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry domainauth.AuditEntry) error
}

// RoleMapper expands an admin role into its permission set and the admin
// sections it may access. Expansion is total; unknown roles map to empty
// grants rather than errors.
type RoleMapper interface {
	Expand(role domainauth.AdminRole) (domainauth.PermissionSet, []string)
}
