package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"net/http"
	"sync"
	"time"

	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	"github.com/triviahub/th-auth-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.Backend       = (*MockBackend)(nil)
	_ ports.TokenStore    = (*MemoryTokenStore)(nil)
	_ ports.ProfileCache  = (*MemoryProfileCache)(nil)
	_ ports.RateLimiter   = (*MockRateLimiter)(nil)
	_ ports.AuditRecorder = (*RecordingAudit)(nil)
	_ ports.RoleMapper    = (*StubRoleMapper)(nil)
)

// MockBackend is a Func-field test double for ports.Backend.
type MockBackend struct {
	LoginFunc   func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error)
	RefreshFunc func(ctx context.Context, audience domainauth.Audience, refreshToken string) (domainauth.TokenPair, error)
	WhoAmIFunc  func(ctx context.Context, audience domainauth.Audience, accessToken string) (domainauth.Identity, error)
	LogoutFunc  func(ctx context.Context, audience domainauth.Audience, accessToken string) error
}

func (m *MockBackend) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	return m.LoginFunc(ctx, in)
}

func (m *MockBackend) Refresh(ctx context.Context, audience domainauth.Audience, refreshToken string) (domainauth.TokenPair, error) {
	return m.RefreshFunc(ctx, audience, refreshToken)
}

func (m *MockBackend) WhoAmI(ctx context.Context, audience domainauth.Audience, accessToken string) (domainauth.Identity, error) {
	return m.WhoAmIFunc(ctx, audience, accessToken)
}

func (m *MockBackend) Logout(ctx context.Context, audience domainauth.Audience, accessToken string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, audience, accessToken)
}

// MemoryTokenStore keeps the last written pair per audience. It ignores the
// request/response plumbing, which is covered by the cookie adapter tests.
type MemoryTokenStore struct {
	mu      sync.Mutex
	pairs   map[domainauth.Audience]domainauth.TokenPair
	cleared map[domainauth.Audience]int
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		pairs:   make(map[domainauth.Audience]domainauth.TokenPair),
		cleared: make(map[domainauth.Audience]int),
	}
}

func (s *MemoryTokenStore) Set(_ http.ResponseWriter, audience domainauth.Audience, pair domainauth.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs[audience] = pair
}

func (s *MemoryTokenStore) Get(_ *http.Request, audience domainauth.Audience) (domainauth.TokenPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair, ok := s.pairs[audience]
	return pair, ok && (pair.Access != "" || pair.Refresh != "")
}

func (s *MemoryTokenStore) Clear(_ http.ResponseWriter, audience domainauth.Audience) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pairs, audience)
	s.cleared[audience]++
}

// ClearCount reports how often Clear ran for the audience.
func (s *MemoryTokenStore) ClearCount(audience domainauth.Audience) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleared[audience]
}

// MemoryProfileCache is an in-memory ports.ProfileCache without expiry.
type MemoryProfileCache struct {
	mu      sync.Mutex
	entries map[string]domainauth.Identity

	GetErr error
	SetErr error
}

func NewMemoryProfileCache() *MemoryProfileCache {
	return &MemoryProfileCache{entries: make(map[string]domainauth.Identity)}
}

func (c *MemoryProfileCache) key(audience domainauth.Audience, token string) string {
	return string(audience) + ":" + token
}

func (c *MemoryProfileCache) Get(_ context.Context, audience domainauth.Audience, accessToken string) (*domainauth.Identity, error) {
	if c.GetErr != nil {
		return nil, c.GetErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	identity, ok := c.entries[c.key(audience, accessToken)]
	if !ok {
		return nil, nil
	}
	return &identity, nil
}

func (c *MemoryProfileCache) Set(_ context.Context, audience domainauth.Audience, accessToken string, identity domainauth.Identity, _ time.Duration) error {
	if c.SetErr != nil {
		return c.SetErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(audience, accessToken)] = identity
	return nil
}

func (c *MemoryProfileCache) Invalidate(_ context.Context, audience domainauth.Audience, accessToken string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, c.key(audience, accessToken))
	return nil
}

// Len reports how many identities are cached.
func (c *MemoryProfileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// MockRateLimiter denies once AllowAfter attempts have been seen, or defers
// to AllowFunc when set.
type MockRateLimiter struct {
	AllowFunc func(ctx context.Context, key string) (bool, error)

	mu       sync.Mutex
	attempts map[string]int
	// AllowAfter is the number of attempts permitted per key (0 = unlimited).
	AllowAfter int
}

func NewMockRateLimiter(allowAfter int) *MockRateLimiter {
	return &MockRateLimiter{attempts: make(map[string]int), AllowAfter: allowAfter}
}

func (l *MockRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.AllowFunc != nil {
		return l.AllowFunc(ctx, key)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.attempts == nil {
		l.attempts = make(map[string]int)
	}
	l.attempts[key]++
	if l.AllowAfter <= 0 {
		return true, nil
	}
	return l.attempts[key] <= l.AllowAfter, nil
}

func (l *MockRateLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
	return nil
}

// RecordingAudit collects audit entries for assertions.
type RecordingAudit struct {
	mu      sync.Mutex
	Entries []domainauth.AuditEntry
	Err     error
}

func (a *RecordingAudit) Record(_ context.Context, entry domainauth.AuditEntry) error {
	if a.Err != nil {
		return a.Err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Entries = append(a.Entries, entry)
	return nil
}

// Events returns the recorded event names in order.
func (a *RecordingAudit) Events() []domainauth.AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domainauth.AuditEvent, len(a.Entries))
	for i, e := range a.Entries {
		out[i] = e.Event
	}
	return out
}

// StubRoleMapper returns fixed grants for every role.
type StubRoleMapper struct {
	Permissions domainauth.PermissionSet
	Sections    []string
}

func (m *StubRoleMapper) Expand(domainauth.AdminRole) (domainauth.PermissionSet, []string) {
	return m.Permissions.Clone(), append([]string(nil), m.Sections...)
}
