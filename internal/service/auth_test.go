package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	apperrors "github.com/triviahub/th-auth-api/internal/errors"
	"github.com/triviahub/th-auth-api/internal/mocks"
	mockauth "github.com/triviahub/th-auth-api/internal/mocks/auth"
	"github.com/triviahub/th-auth-api/internal/ports"
)

type authFixture struct {
	backend *mocks.MockBackend
	cache   *mockauth.MemoryProfileCache
	limiter *mockauth.MockRateLimiter
	audit   *mockauth.RecordingAudit
	svc     *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &authFixture{
		backend: mocks.NewMockBackend(ctrl),
		cache:   mockauth.NewMemoryProfileCache(),
		limiter: mockauth.NewMockRateLimiter(0),
		audit:   &mockauth.RecordingAudit{},
	}
	f.svc = NewAuthService(AuthServiceOptions{
		Backend: f.backend,
		Cache:   f.cache,
		Limiter: f.limiter,
		Audit:   f.audit,
		Roles: &mockauth.StubRoleMapper{
			Permissions: domainauth.PermissionSet{"manageGames": true},
			Sections:    []string{"games"},
		},
		CacheTTL: time.Minute,
	})
	return f
}

func userLoginResult() *ports.LoginResult {
	return &ports.LoginResult{
		Tokens: domainauth.TokenPair{Access: "acc-1", Refresh: "ref-1"},
		Identity: domainauth.Identity{
			Audience: domainauth.AudienceUser,
			User: &domainauth.UserIdentity{
				ID:    "u-1",
				Email: "player@example.com",
			},
		},
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture(t)
	f.backend.EXPECT().Login(gomock.Any(), ports.LoginInput{
		Audience:   domainauth.AudienceUser,
		Identifier: "player@example.com",
		Secret:     "pw",
	}).Return(userLoginResult(), nil)

	result, err := f.svc.Login(context.Background(), LoginRequest{
		Audience:   domainauth.AudienceUser,
		Identifier: " player@example.com ",
		Secret:     "pw",
		RemoteAddr: "10.0.0.1",
	})

	require.NoError(t, err)
	assert.Equal(t, "acc-1", result.Tokens.Access)
	assert.Equal(t, []domainauth.AuditEvent{domainauth.AuditLoginSuccess}, f.audit.Events())
	assert.Equal(t, 1, f.cache.Len(), "fresh identity should be cached")
}

func TestAuthService_Login_ValidationSkipsBackend(t *testing.T) {
	f := newAuthFixture(t)
	// No EXPECT on the backend; any call would fail the test.

	cases := []LoginRequest{
		{Audience: "robot", Identifier: "x", Secret: "y"},
		{Audience: domainauth.AudienceUser, Identifier: "  ", Secret: "y"},
		{Audience: domainauth.AudienceUser, Identifier: "x", Secret: ""},
	}
	for _, req := range cases {
		_, err := f.svc.Login(context.Background(), req)
		assert.True(t, apperrors.IsValidation(err), "request %+v", req)
	}
	assert.Empty(t, f.audit.Events())
}

func TestAuthService_Login_FailureIsAudited(t *testing.T) {
	f := newAuthFixture(t)
	f.backend.EXPECT().Login(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.InvalidCredentials("nope"))

	_, err := f.svc.Login(context.Background(), LoginRequest{
		Audience:   domainauth.AudienceUser,
		Identifier: "player@example.com",
		Secret:     "wrong",
	})

	assert.True(t, apperrors.IsInvalidCredentials(err))
	require.Len(t, f.audit.Entries, 1)
	assert.Equal(t, domainauth.AuditLoginFailure, f.audit.Entries[0].Event)
	assert.Equal(t, string(apperrors.ErrCodeInvalidCredentials), f.audit.Entries[0].ErrorCode)
}

func TestAuthService_Login_RateLimited(t *testing.T) {
	f := newAuthFixture(t)
	f.limiter.AllowAfter = 2
	f.backend.EXPECT().Login(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.InvalidCredentials("nope")).Times(2)

	req := LoginRequest{
		Audience:   domainauth.AudienceUser,
		Identifier: "player@example.com",
		Secret:     "wrong",
		RemoteAddr: "10.0.0.1",
	}
	for i := 0; i < 2; i++ {
		_, err := f.svc.Login(context.Background(), req)
		assert.True(t, apperrors.IsInvalidCredentials(err))
	}

	_, err := f.svc.Login(context.Background(), req)
	assert.True(t, apperrors.IsRateLimited(err))

	events := f.audit.Events()
	require.Len(t, events, 3)
	assert.Equal(t, domainauth.AuditLoginFailure, events[2])
	assert.Equal(t, string(apperrors.ErrCodeRateLimited), f.audit.Entries[2].ErrorCode)
}

func TestAuthService_Login_LimiterOutageFailsOpen(t *testing.T) {
	f := newAuthFixture(t)
	f.limiter.AllowFunc = func(context.Context, string) (bool, error) {
		return false, errors.New("redis down")
	}
	f.backend.EXPECT().Login(gomock.Any(), gomock.Any()).Return(userLoginResult(), nil)

	_, err := f.svc.Login(context.Background(), LoginRequest{
		Audience:   domainauth.AudienceUser,
		Identifier: "player@example.com",
		Secret:     "pw",
	})
	assert.NoError(t, err)
}

func TestAuthService_Login_InactiveAdminRejected(t *testing.T) {
	f := newAuthFixture(t)
	f.backend.EXPECT().Login(gomock.Any(), gomock.Any()).Return(&ports.LoginResult{
		Tokens: domainauth.TokenPair{Access: "a", Refresh: "r"},
		Identity: domainauth.Identity{
			Audience: domainauth.AudienceAdmin,
			Admin: &domainauth.AdminIdentity{
				ID:     "adm-1",
				Role:   domainauth.RoleContentAdmin,
				Active: false,
			},
		},
	}, nil)

	_, err := f.svc.Login(context.Background(), LoginRequest{
		Audience:   domainauth.AudienceAdmin,
		Identifier: "admin@example.com",
		Secret:     "pw",
	})
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestAuthService_Login_ExpandsBareAdminRole(t *testing.T) {
	f := newAuthFixture(t)
	f.backend.EXPECT().Login(gomock.Any(), gomock.Any()).Return(&ports.LoginResult{
		Tokens: domainauth.TokenPair{Access: "a", Refresh: "r"},
		Identity: domainauth.Identity{
			Audience: domainauth.AudienceAdmin,
			Admin: &domainauth.AdminIdentity{
				ID:     "adm-1",
				Role:   domainauth.RoleContentAdmin,
				Active: true,
			},
		},
	}, nil)

	result, err := f.svc.Login(context.Background(), LoginRequest{
		Audience:   domainauth.AudienceAdmin,
		Identifier: "admin@example.com",
		Secret:     "pw",
	})

	require.NoError(t, err)
	assert.True(t, result.Identity.Admin.Permissions.Has("manageGames"))
	assert.Equal(t, []string{"games"}, result.Identity.Admin.AllowedSections)
}

func TestAuthService_Refresh_EmptyToken(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Refresh(context.Background(), domainauth.AudienceUser, domainauth.TokenPair{})
	assert.True(t, apperrors.IsRefreshInvalid(err))
}

func TestAuthService_Refresh_Success(t *testing.T) {
	f := newAuthFixture(t)
	rotated := domainauth.TokenPair{Access: "acc-2", Refresh: "ref-2"}
	f.backend.EXPECT().Refresh(gomock.Any(), domainauth.AudienceUser, "ref-1").Return(rotated, nil)

	pair, err := f.svc.Refresh(context.Background(), domainauth.AudienceUser, domainauth.TokenPair{Access: "acc-1", Refresh: "ref-1"})

	require.NoError(t, err)
	assert.Equal(t, rotated, pair)
	assert.Equal(t, []domainauth.AuditEvent{domainauth.AuditRefresh}, f.audit.Events())
}

func TestAuthService_Refresh_EvictsSupersededAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	identity := userLoginResult().Identity
	require.NoError(t, f.cache.Set(context.Background(), domainauth.AudienceUser, "acc-1", identity, time.Minute))

	rotated := domainauth.TokenPair{Access: "acc-2", Refresh: "ref-2"}
	f.backend.EXPECT().Refresh(gomock.Any(), domainauth.AudienceUser, "ref-1").Return(rotated, nil)

	_, err := f.svc.Refresh(context.Background(), domainauth.AudienceUser, domainauth.TokenPair{Access: "acc-1", Refresh: "ref-1"})
	require.NoError(t, err)

	// The backend now rejects acc-1; Session must not vouch for it from cache.
	f.backend.EXPECT().WhoAmI(gomock.Any(), domainauth.AudienceUser, "acc-1").
		Return(domainauth.Identity{}, apperrors.TokenExpired("access token expired"))

	_, err = f.svc.Session(context.Background(), domainauth.AudienceUser, "acc-1")
	assert.True(t, apperrors.IsTokenExpired(err))
	assert.Equal(t, 0, f.cache.Len())
}

func TestAuthService_Refresh_FailureKeepsCachedIdentity(t *testing.T) {
	f := newAuthFixture(t)
	identity := userLoginResult().Identity
	require.NoError(t, f.cache.Set(context.Background(), domainauth.AudienceUser, "acc-1", identity, time.Minute))

	f.backend.EXPECT().Refresh(gomock.Any(), domainauth.AudienceUser, "ref-1").
		Return(domainauth.TokenPair{}, apperrors.BackendUnavailable("cms down"))

	_, err := f.svc.Refresh(context.Background(), domainauth.AudienceUser, domainauth.TokenPair{Access: "acc-1", Refresh: "ref-1"})
	require.Error(t, err)
	assert.Equal(t, 1, f.cache.Len(), "a failed rotation must not evict the still-valid token")
}

func TestAuthService_Refresh_ConcurrentCallsCoalesce(t *testing.T) {
	f := newAuthFixture(t)
	rotated := domainauth.TokenPair{Access: "acc-2", Refresh: "ref-2"}
	f.backend.EXPECT().Refresh(gomock.Any(), domainauth.AudienceUser, "ref-1").
		DoAndReturn(func(context.Context, domainauth.Audience, string) (domainauth.TokenPair, error) {
			time.Sleep(50 * time.Millisecond)
			return rotated, nil
		}).Times(1)

	const workers = 8
	var wg sync.WaitGroup
	results := make([]domainauth.TokenPair, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Refresh(context.Background(), domainauth.AudienceUser, domainauth.TokenPair{Access: "acc-1", Refresh: "ref-1"})
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, rotated, results[i], "every waiter gets the same rotated pair")
	}
}

func TestAuthService_Session_CacheHitSkipsBackend(t *testing.T) {
	f := newAuthFixture(t)
	identity := userLoginResult().Identity
	require.NoError(t, f.cache.Set(context.Background(), domainauth.AudienceUser, "acc-1", identity, time.Minute))
	// No WhoAmI expectation; a backend call would fail the test.

	got, err := f.svc.Session(context.Background(), domainauth.AudienceUser, "acc-1")

	require.NoError(t, err)
	assert.Equal(t, identity.ID(), got.ID())
}

func TestAuthService_Session_MissValidatesAndCaches(t *testing.T) {
	f := newAuthFixture(t)
	identity := userLoginResult().Identity
	f.backend.EXPECT().WhoAmI(gomock.Any(), domainauth.AudienceUser, "acc-1").Return(identity, nil)

	got, err := f.svc.Session(context.Background(), domainauth.AudienceUser, "acc-1")

	require.NoError(t, err)
	assert.Equal(t, identity.ID(), got.ID())
	assert.Equal(t, 1, f.cache.Len())
}

func TestAuthService_Session_ConcurrentMissesCoalesce(t *testing.T) {
	f := newAuthFixture(t)
	identity := userLoginResult().Identity
	f.backend.EXPECT().WhoAmI(gomock.Any(), domainauth.AudienceUser, "acc-1").
		DoAndReturn(func(context.Context, domainauth.Audience, string) (domainauth.Identity, error) {
			time.Sleep(50 * time.Millisecond)
			return identity, nil
		}).Times(1)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Session(context.Background(), domainauth.AudienceUser, "acc-1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		assert.NoError(t, errs[i])
	}
}

func TestAuthService_Session_CacheErrorFallsThrough(t *testing.T) {
	f := newAuthFixture(t)
	f.cache.GetErr = errors.New("redis down")
	identity := userLoginResult().Identity
	f.backend.EXPECT().WhoAmI(gomock.Any(), domainauth.AudienceUser, "acc-1").Return(identity, nil)

	got, err := f.svc.Session(context.Background(), domainauth.AudienceUser, "acc-1")

	require.NoError(t, err)
	assert.Equal(t, identity.ID(), got.ID())
}

func TestAuthService_Session_ExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	f.backend.EXPECT().WhoAmI(gomock.Any(), domainauth.AudienceUser, "stale").
		Return(domainauth.Identity{}, apperrors.TokenExpired("expired"))

	_, err := f.svc.Session(context.Background(), domainauth.AudienceUser, "stale")
	assert.True(t, apperrors.IsTokenExpired(err))
}

func TestAuthService_Logout_SwallowsBackendFailure(t *testing.T) {
	f := newAuthFixture(t)
	identity := userLoginResult().Identity
	require.NoError(t, f.cache.Set(context.Background(), domainauth.AudienceUser, "acc-1", identity, time.Minute))
	f.backend.EXPECT().Logout(gomock.Any(), domainauth.AudienceUser, "acc-1").
		Return(apperrors.BackendUnavailable("cms down"))

	f.svc.Logout(context.Background(), domainauth.AudienceUser, "acc-1")

	assert.Equal(t, 0, f.cache.Len(), "cache entry removed despite backend failure")
	assert.Equal(t, []domainauth.AuditEvent{domainauth.AuditLogout}, f.audit.Events())
}

func TestRateLimitKey(t *testing.T) {
	key := RateLimitKey(domainauth.AudienceUser, "Player@Example.com", "10.0.0.1")
	assert.Equal(t, "user:player@example.com:10.0.0.1", key)
}
