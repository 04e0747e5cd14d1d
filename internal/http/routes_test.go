package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triviahub/th-auth-api/internal/adapters/cookies"
	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	apperrors "github.com/triviahub/th-auth-api/internal/errors"
	mockauth "github.com/triviahub/th-auth-api/internal/mocks/auth"
	"github.com/triviahub/th-auth-api/internal/ports"
	"github.com/triviahub/th-auth-api/internal/service"
)

const (
	validUserToken  = "valid-user-access"
	validAdminToken = "valid-admin-access"
)

func testIdentity(audience domainauth.Audience) domainauth.Identity {
	if audience == domainauth.AudienceAdmin {
		return domainauth.Identity{
			Audience: domainauth.AudienceAdmin,
			Admin: &domainauth.AdminIdentity{
				ID:              "adm-1",
				Email:           "admin@example.com",
				Role:            domainauth.RoleContentAdmin,
				Permissions:     domainauth.PermissionSet{"manageGames": true},
				AllowedSections: []string{"games"},
				Active:          true,
			},
		}
	}
	return domainauth.Identity{
		Audience: domainauth.AudienceUser,
		User:     &domainauth.UserIdentity{ID: "u-1", Email: "player@example.com"},
	}
}

// testBackend accepts one credential pair per audience and resolves the two
// valid access tokens.
func testBackend() *mockauth.MockBackend {
	return &mockauth.MockBackend{
		LoginFunc: func(_ context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
			if in.Identifier != string(in.Audience)+"@example.com" || in.Secret != "correct" {
				return nil, apperrors.InvalidCredentials("invalid identifier or password")
			}
			token := validUserToken
			if in.Audience == domainauth.AudienceAdmin {
				token = validAdminToken
			}
			return &ports.LoginResult{
				Tokens:   domainauth.TokenPair{Access: token, Refresh: "refresh-" + token},
				Identity: testIdentity(in.Audience),
			}, nil
		},
		RefreshFunc: func(_ context.Context, audience domainauth.Audience, refreshToken string) (domainauth.TokenPair, error) {
			if !strings.HasPrefix(refreshToken, "refresh-valid") {
				return domainauth.TokenPair{}, apperrors.RefreshInvalid("refresh token is not valid")
			}
			return domainauth.TokenPair{Access: "rotated-access", Refresh: "refresh-valid-rotated"}, nil
		},
		WhoAmIFunc: func(_ context.Context, audience domainauth.Audience, accessToken string) (domainauth.Identity, error) {
			switch {
			case audience == domainauth.AudienceUser && accessToken == validUserToken:
				return testIdentity(domainauth.AudienceUser), nil
			case audience == domainauth.AudienceAdmin && accessToken == validAdminToken:
				return testIdentity(domainauth.AudienceAdmin), nil
			case accessToken == "expired":
				return domainauth.Identity{}, apperrors.TokenExpired("access token expired")
			default:
				return domainauth.Identity{}, apperrors.TokenInvalid("access token is not valid")
			}
		},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store, err := cookies.NewStore(cookies.Config{})
	require.NoError(t, err)

	svc := service.NewAuthService(service.AuthServiceOptions{
		Backend: testBackend(),
		Cache:   mockauth.NewMemoryProfileCache(),
	})
	return NewRouter(RouterServices{Auth: svc, Tokens: store})
}

func addAuthCookies(req *http.Request, audience domainauth.Audience, access string) {
	req.AddCookie(&http.Cookie{Name: cookies.AccessCookieName(audience), Value: access})
	req.AddCookie(&http.Cookie{Name: cookies.RefreshCookieName(audience), Value: "refresh-" + access})
	req.AddCookie(&http.Cookie{Name: cookies.PresenceCookieName(audience), Value: "1"})
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- Gate middleware ---

func TestGate_AdminDashboardWithoutCookieRedirectsToAdminLogin(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
}

func TestGate_UserProtectedWithoutCookieRedirectsToLogin(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestGate_RootBranchesByPresence(t *testing.T) {
	router := newTestRouter(t)

	// No cookies: public landing.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "landing")

	// User cookie only: user dashboard, never the admin one.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "clientUserToken", Value: "1"})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	// Admin cookie only.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "clientAdminToken", Value: "1"})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/dashboard", rec.Header().Get("Location"))

	// Both: admin wins.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "clientUserToken", Value: "1"})
	req.AddCookie(&http.Cookie{Name: "clientAdminToken", Value: "1"})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "/admin/dashboard", rec.Header().Get("Location"))
}

func TestGate_LoginPageWithSessionRedirectsToDashboard(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: "clientUserToken", Value: "1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/admin/login", nil)
	req.AddCookie(&http.Cookie{Name: "clientAdminToken", Value: "1"})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/dashboard", rec.Header().Get("Location"))
}

func TestGate_IgnoresAPIRoutes(t *testing.T) {
	router := newTestRouter(t)

	// An API path under /api/admin never gets a page redirect.
	req := httptest.NewRequest(http.MethodGet, "/api/admin/auth/session", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClassifyPath(t *testing.T) {
	cases := map[string]pathClass{
		"/":                classRoot,
		"/login":           classUserLogin,
		"/admin/login":     classAdminLogin,
		"/admin":           classAdminProtected,
		"/admin/dashboard": classAdminProtected,
		"/admin/users/7":   classAdminProtected,
		"/dashboard":       classUserProtected,
		"/play/quiz/3":     classUserProtected,
		"/account":         classUserProtected,
		"/about":           classPublic,
		"/api/auth/login":  classPublic,
		"/administrator":   classPublic,
		"/loginhelp":       classPublic,
	}
	for path, want := range cases {
		assert.Equal(t, want, classifyPath(path), "path %s", path)
	}
}

// --- auth handlers ---

func TestLogin_SuccessSetsCookies(t *testing.T) {
	router := newTestRouter(t)
	body := strings.NewReader(`{"identifier":"user@example.com","password":"correct"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	names := make(map[string]string)
	for _, c := range rec.Result().Cookies() {
		names[c.Name] = c.Value
	}
	assert.Equal(t, validUserToken, names["userToken"])
	assert.Equal(t, "refresh-"+validUserToken, names["userRefreshToken"])
	assert.Equal(t, "1", names["clientUserToken"])

	var resp identityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "u-1", resp.Identity.ID())
}

func TestLogin_AdminUsesAdminRoute(t *testing.T) {
	router := newTestRouter(t)
	body := strings.NewReader(`{"identifier":"admin@example.com","password":"correct"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/auth/login", body)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	names := make(map[string]bool)
	for _, c := range rec.Result().Cookies() {
		names[c.Name] = true
	}
	assert.True(t, names["adminToken"])
	assert.False(t, names["userToken"], "admin login must not touch user cookies")
}

func TestLogin_BadCredentials(t *testing.T) {
	router := newTestRouter(t)
	body := strings.NewReader(`{"identifier":"user@example.com","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", decodeErrorBody(t, rec)["error"])
	assert.Empty(t, rec.Result().Cookies(), "failed login must not set cookies")
}

func TestLogin_MalformedBody(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"identifier":`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", decodeErrorBody(t, rec)["error"])
}

func TestRefresh_RotatesCookies(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	addAuthCookies(req, domainauth.AudienceUser, "valid-user-access")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	values := make(map[string]string)
	for _, c := range rec.Result().Cookies() {
		values[c.Name] = c.Value
	}
	assert.Equal(t, "rotated-access", values["userToken"])
	assert.Equal(t, "refresh-valid-rotated", values["userRefreshToken"])
}

func TestRefresh_InvalidTokenClearsCookies(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "userRefreshToken", Value: "refresh-bogus"})
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "refresh_invalid", decodeErrorBody(t, rec)["error"])
	for _, c := range rec.Result().Cookies() {
		assert.Equal(t, -1, c.MaxAge, "cookie %s should be expired", c.Name)
	}
}

func TestSession_ReturnsIdentity(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	addAuthCookies(req, domainauth.AudienceUser, validUserToken)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp identityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "player@example.com", resp.Identity.Email())
}

func TestSession_NoCookie(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSession_ExpiredKeepsRefreshCookie(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	addAuthCookies(req, domainauth.AudienceUser, "expired")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "token_expired", decodeErrorBody(t, rec)["error"])
	assert.Empty(t, rec.Result().Cookies(), "expired token must not clear cookies; refresh still needs them")
}

func TestSession_InvalidTokenClearsCookies(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	addAuthCookies(req, domainauth.AudienceUser, "garbage")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Result().Cookies(), "invalid token should clear the audience cookies")
}

func TestLogout_AlwaysClearsCookies(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	addAuthCookies(req, domainauth.AudienceUser, validUserToken)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	for _, c := range rec.Result().Cookies() {
		assert.Equal(t, -1, c.MaxAge, "cookie %s", c.Name)
	}
}

// --- admin section authorization ---

func TestAdminSection_Allowed(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/sections/games", nil)
	addAuthCookies(req, domainauth.AudienceAdmin, validAdminToken)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "games")
}

func TestAdminSection_DeniedWithoutPermission(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/sections/users", nil)
	addAuthCookies(req, domainauth.AudienceAdmin, validAdminToken)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "unauthorized", decodeErrorBody(t, rec)["error"])
}

func TestAdminSection_UserTokenRejected(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/sections/games", nil)
	// User cookies on an admin route carry no admin tokens at all.
	addAuthCookies(req, domainauth.AudienceUser, validUserToken)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

// --- error mapping ---

func TestStatusForCode(t *testing.T) {
	cases := map[apperrors.ErrorCode]int{
		apperrors.ErrCodeInvalidCredentials: http.StatusUnauthorized,
		apperrors.ErrCodeTokenExpired:       http.StatusUnauthorized,
		apperrors.ErrCodeTokenInvalid:       http.StatusUnauthorized,
		apperrors.ErrCodeRefreshInvalid:     http.StatusUnauthorized,
		apperrors.ErrCodeUnauthorized:       http.StatusForbidden,
		apperrors.ErrCodeRateLimited:        http.StatusTooManyRequests,
		apperrors.ErrCodeBackendUnavailable: http.StatusBadGateway,
		apperrors.ErrCodeMalformedResponse:  http.StatusBadGateway,
		apperrors.ErrCodeValidation:         http.StatusBadRequest,
		apperrors.ErrCodeNotFound:           http.StatusNotFound,
		apperrors.ErrCodeInternal:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, statusForCode(code), "code %s", code)
	}
}
