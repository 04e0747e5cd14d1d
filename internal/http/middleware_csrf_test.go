package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csrfTestHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func issueCSRFToken(t *testing.T, protected http.Handler) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == DefaultCSRFCookieName {
			return c
		}
	}
	t.Fatal("no CSRF cookie issued")
	return nil
}

func TestCSRF_SafeMethodsPassAndSeedCookie(t *testing.T) {
	protected := CSRFProtection(CSRFConfig{})(csrfTestHandler())

	cookie := issueCSRFToken(t, protected)
	assert.NotEmpty(t, cookie.Value)
	assert.False(t, cookie.HttpOnly, "the browser client must read the token to echo it")
}

func TestCSRF_PostWithoutTokenRejected(t *testing.T) {
	protected := CSRFProtection(CSRFConfig{})(csrfTestHandler())

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCSRF_PostWithMatchingHeaderAccepted(t *testing.T) {
	protected := CSRFProtection(CSRFConfig{})(csrfTestHandler())
	cookie := issueCSRFToken(t, protected)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(cookie)
	req.Header.Set(DefaultCSRFHeaderName, cookie.Value)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCSRF_PostWithMismatchedHeaderRejected(t *testing.T) {
	protected := CSRFProtection(CSRFConfig{})(csrfTestHandler())
	cookie := issueCSRFToken(t, protected)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(cookie)
	req.Header.Set(DefaultCSRFHeaderName, "not-the-token")
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCSRF_HeaderWithoutCookieRejected(t *testing.T) {
	protected := CSRFProtection(CSRFConfig{})(csrfTestHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(DefaultCSRFHeaderName, "orphan-token")
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
