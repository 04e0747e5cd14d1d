package cookies

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
)

func newStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	store, err := NewStore(cfg)
	require.NoError(t, err)
	return store
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestNewStore_RejectsPublicSuffixDomain(t *testing.T) {
	for _, domain := range []string{"com", ".com", "co.uk"} {
		_, err := NewStore(Config{Domain: domain})
		assert.Error(t, err, "domain %q should be rejected", domain)
	}
}

func TestNewStore_AcceptsRegistrableDomain(t *testing.T) {
	store, err := NewStore(Config{Domain: ".triviahub.example.com"})

	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestStore_Set_WritesAllThreeCookies(t *testing.T) {
	store := newStore(t, Config{Secure: true})
	rec := httptest.NewRecorder()

	store.Set(rec, domainauth.AudienceUser, domainauth.TokenPair{Access: "a-1", Refresh: "r-1"})

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 3)

	access := findCookie(cookies, "userToken")
	require.NotNil(t, access)
	assert.Equal(t, "a-1", access.Value)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteStrictMode, access.SameSite)
	assert.Equal(t, "/", access.Path)

	refresh := findCookie(cookies, "userRefreshToken")
	require.NotNil(t, refresh)
	assert.Equal(t, "r-1", refresh.Value)
	assert.True(t, refresh.HttpOnly)

	presence := findCookie(cookies, "clientUserToken")
	require.NotNil(t, presence)
	assert.Equal(t, "1", presence.Value)
	assert.False(t, presence.HttpOnly, "presence cookie must be client-readable")
}

func TestStore_AudiencesNeverShareCookieNames(t *testing.T) {
	userNames := []string{
		AccessCookieName(domainauth.AudienceUser),
		RefreshCookieName(domainauth.AudienceUser),
		PresenceCookieName(domainauth.AudienceUser),
	}
	adminNames := []string{
		AccessCookieName(domainauth.AudienceAdmin),
		RefreshCookieName(domainauth.AudienceAdmin),
		PresenceCookieName(domainauth.AudienceAdmin),
	}

	for _, u := range userNames {
		assert.NotContains(t, adminNames, u)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store := newStore(t, Config{})
	rec := httptest.NewRecorder()
	pair := domainauth.TokenPair{Access: "a-2", Refresh: "r-2"}

	store.Set(rec, domainauth.AudienceAdmin, pair)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	got, ok := store.Get(req, domainauth.AudienceAdmin)
	require.True(t, ok)
	assert.Equal(t, pair, got)

	// The other audience sees nothing.
	_, ok = store.Get(req, domainauth.AudienceUser)
	assert.False(t, ok)
}

func TestStore_Get_RefreshOnlyStillPresent(t *testing.T) {
	store := newStore(t, Config{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "userRefreshToken", Value: "r-only"})

	pair, ok := store.Get(req, domainauth.AudienceUser)

	require.True(t, ok)
	assert.Empty(t, pair.Access)
	assert.Equal(t, "r-only", pair.Refresh)
}

func TestStore_Get_Empty(t *testing.T) {
	store := newStore(t, Config{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	pair, ok := store.Get(req, domainauth.AudienceUser)

	assert.False(t, ok)
	assert.True(t, pair.Empty())
}

func TestStore_Clear_ExpiresAllCookies(t *testing.T) {
	store := newStore(t, Config{})
	rec := httptest.NewRecorder()

	store.Clear(rec, domainauth.AudienceUser)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 3)
	for _, c := range cookies {
		assert.Equal(t, -1, c.MaxAge, "cookie %s", c.Name)
		assert.Empty(t, c.Value, "cookie %s", c.Name)
		assert.True(t, c.Expires.Before(time.Now()), "cookie %s", c.Name)
	}
}

func TestStore_Clear_Idempotent(t *testing.T) {
	store := newStore(t, Config{})

	first := httptest.NewRecorder()
	store.Clear(first, domainauth.AudienceAdmin)
	second := httptest.NewRecorder()
	store.Clear(second, domainauth.AudienceAdmin)

	assert.Equal(t, first.Header().Values("Set-Cookie"), second.Header().Values("Set-Cookie"))
}

func TestStore_SameSiteLaxOverride(t *testing.T) {
	store := newStore(t, Config{SameSite: http.SameSiteLaxMode})
	rec := httptest.NewRecorder()

	store.Set(rec, domainauth.AudienceUser, domainauth.TokenPair{Access: "a", Refresh: "r"})

	for _, c := range rec.Result().Cookies() {
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	}
}
