package httpx

import (
	"context"

	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
)

// identityKey is an unexported context key type to avoid collisions across
// packages. Centralized here so all handlers/middleware use the same key.
type identityKey struct{}

// SetIdentityInContext returns a child context that carries the identity.
// If identity is nil, the original ctx is returned unchanged.
func SetIdentityInContext(ctx context.Context, identity *domainauth.Identity) context.Context {
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, identityKey{}, identity)
}

// GetIdentityFromContext returns the identity from context and a boolean
// indicating presence.
func GetIdentityFromContext(ctx context.Context) (*domainauth.Identity, bool) {
	if identity, ok := ctx.Value(identityKey{}).(*domainauth.Identity); ok && identity != nil {
		return identity, true
	}
	return nil, false
}
