package devbackend

// Package devbackend provides a config-driven, in-memory Backend for local
// development. It lets the gateway run without a content backend while
// exercising the same login, refresh, whoami, and logout flows.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	apperrors "github.com/triviahub/th-auth-api/internal/errors"

	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	"github.com/triviahub/th-auth-api/internal/ports"
)

// Config declares the two fixed accounts the dev backend accepts.
type Config struct {
	UserEmail     string
	UserPassword  string
	AdminEmail    string
	AdminPassword string
	AdminRole     domainauth.AdminRole
	// Roles expands the admin role into grants. Required when AdminEmail is set.
	Roles ports.RoleMapper
}

// Backend implements ports.Backend against in-memory state.
type Backend struct {
	cfg Config

	mu sync.Mutex
	// access token -> identity
	sessions map[string]domainauth.Identity
	// refresh token -> the access token it can replace
	refreshes map[string]refreshState
	// access tokens invalidated by rotation; whoami reports these as expired
	expired map[string]struct{}
}

type refreshState struct {
	audience    domainauth.Audience
	accessToken string
}

var _ ports.Backend = (*Backend)(nil)

// New constructs a dev backend from Config.
func New(cfg Config) (*Backend, error) {
	if cfg.UserEmail == "" || cfg.UserPassword == "" {
		return nil, errors.New("dev backend: user credentials are required")
	}
	if cfg.AdminEmail != "" && cfg.Roles == nil {
		return nil, errors.New("dev backend: role mapper is required when an admin account is configured")
	}
	if cfg.AdminRole == "" {
		cfg.AdminRole = domainauth.RoleSuperAdmin
	}
	return &Backend{
		cfg:       cfg,
		sessions:  make(map[string]domainauth.Identity),
		refreshes: make(map[string]refreshState),
		expired:   make(map[string]struct{}),
	}, nil
}

// Login checks the attempt against the configured accounts and issues a
// fresh token pair on a match.
func (b *Backend) Login(_ context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	identity, ok := b.matchCredentials(in)
	if !ok {
		return nil, apperrors.InvalidCredentials("invalid identifier or password")
	}

	pair, err := b.issueTokens(in.Audience, identity)
	if err != nil {
		return nil, err
	}
	return &ports.LoginResult{Tokens: pair, Identity: identity}, nil
}

// Refresh rotates the token pair. The replaced access token is remembered so
// whoami reports it as expired rather than unknown.
func (b *Backend) Refresh(_ context.Context, audience domainauth.Audience, refreshToken string) (domainauth.TokenPair, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.refreshes[refreshToken]
	if !ok || state.audience != audience {
		return domainauth.TokenPair{}, apperrors.RefreshInvalid("refresh token is not valid")
	}

	identity := b.sessions[state.accessToken]
	delete(b.sessions, state.accessToken)
	delete(b.refreshes, refreshToken)
	b.expired[state.accessToken] = struct{}{}

	return b.issueTokensLocked(audience, identity)
}

// WhoAmI resolves an access token to its identity.
func (b *Backend) WhoAmI(_ context.Context, audience domainauth.Audience, accessToken string) (domainauth.Identity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, wasRotated := b.expired[accessToken]; wasRotated {
		return domainauth.Identity{}, apperrors.TokenExpired("access token expired")
	}
	identity, ok := b.sessions[accessToken]
	if !ok || identity.Audience != audience {
		return domainauth.Identity{}, apperrors.TokenInvalid("access token is not valid")
	}
	return identity, nil
}

// Logout discards the session for the token. Unknown tokens are fine.
func (b *Backend) Logout(_ context.Context, _ domainauth.Audience, accessToken string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.sessions, accessToken)
	for refresh, state := range b.refreshes {
		if state.accessToken == accessToken {
			delete(b.refreshes, refresh)
		}
	}
	return nil
}

func (b *Backend) matchCredentials(in ports.LoginInput) (domainauth.Identity, bool) {
	switch in.Audience {
	case domainauth.AudienceUser:
		if in.Identifier != b.cfg.UserEmail || in.Secret != b.cfg.UserPassword {
			return domainauth.Identity{}, false
		}
		return domainauth.Identity{
			Audience: domainauth.AudienceUser,
			User: &domainauth.UserIdentity{
				ID:           "dev-user-1",
				Email:        b.cfg.UserEmail,
				Username:     "devuser",
				Role:         "authenticated",
				Subscription: domainauth.SubscriptionFree,
			},
		}, true
	case domainauth.AudienceAdmin:
		if b.cfg.AdminEmail == "" || in.Identifier != b.cfg.AdminEmail || in.Secret != b.cfg.AdminPassword {
			return domainauth.Identity{}, false
		}
		permissions, sections := b.cfg.Roles.Expand(b.cfg.AdminRole)
		return domainauth.Identity{
			Audience: domainauth.AudienceAdmin,
			Admin: &domainauth.AdminIdentity{
				ID:              "dev-admin-1",
				Email:           b.cfg.AdminEmail,
				Role:            b.cfg.AdminRole,
				Permissions:     permissions,
				AllowedSections: sections,
				Active:          true,
			},
		}, true
	default:
		return domainauth.Identity{}, false
	}
}

func (b *Backend) issueTokens(audience domainauth.Audience, identity domainauth.Identity) (domainauth.TokenPair, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueTokensLocked(audience, identity)
}

func (b *Backend) issueTokensLocked(audience domainauth.Audience, identity domainauth.Identity) (domainauth.TokenPair, error) {
	access, err := randomToken(32)
	if err != nil {
		return domainauth.TokenPair{}, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := randomToken(32)
	if err != nil {
		return domainauth.TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}

	b.sessions[access] = identity
	b.refreshes[refresh] = refreshState{audience: audience, accessToken: access}
	return domainauth.TokenPair{Access: access, Refresh: refresh}, nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
