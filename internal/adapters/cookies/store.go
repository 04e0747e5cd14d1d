package cookies

// Package cookies implements the per-audience token store on top of HTTP
// cookies. Access and refresh tokens live in httpOnly cookies; a non-httpOnly
// presence flag exists only so the gate middleware can make fast redirect
// decisions without reading the secrets.

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	"github.com/triviahub/th-auth-api/internal/ports"
)

// Cookie names per audience. Audiences must never share cookie names; the
// guard against cross-audience reads is the name split itself.
const (
	userAccessCookie   = "userToken"
	userRefreshCookie  = "userRefreshToken"
	userPresenceCookie = "clientUserToken"

	adminAccessCookie   = "adminToken"
	adminRefreshCookie  = "adminRefreshToken"
	adminPresenceCookie = "clientAdminToken"
)

// presenceValue is the only value ever written to presence cookies. It
// carries no authority; handlers always re-resolve the httpOnly token.
const presenceValue = "1"

// Config captures cookie attribute configuration for the store.
type Config struct {
	// Domain for all auth cookies; empty uses the request domain.
	Domain string
	// Secure marks cookies Secure. Disabled only in development.
	Secure bool
	// SameSite applies to all auth cookies; defaults to Strict.
	SameSite http.SameSite
	// AccessTTL bounds access token cookie lifetime.
	AccessTTL time.Duration
	// RefreshTTL bounds refresh and presence cookie lifetime.
	RefreshTTL time.Duration
}

// Store implements ports.TokenStore.
type Store struct {
	domain     string
	secure     bool
	sameSite   http.SameSite
	accessTTL  time.Duration
	refreshTTL time.Duration
}

var _ ports.TokenStore = (*Store)(nil)

// NewStore constructs a cookie token store. A configured cookie domain that
// is a bare public suffix (e.g. "com", "co.uk") is rejected: browsers refuse
// such cookies and every login would silently fail.
func NewStore(cfg Config) (*Store, error) {
	domain := strings.TrimSpace(cfg.Domain)
	if domain != "" {
		host := strings.TrimPrefix(domain, ".")
		if suffix, _ := publicsuffix.PublicSuffix(host); suffix == host {
			return nil, fmt.Errorf("cookie domain %q is a public suffix", cfg.Domain)
		}
	}

	sameSite := cfg.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteStrictMode
	}
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 720 * time.Hour
	}

	return &Store{
		domain:     domain,
		secure:     cfg.Secure,
		sameSite:   sameSite,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// Set writes the access, refresh, and presence cookies for the audience in a
// single response. All three are written together so a partially applied
// login can never leave a half-written pair behind.
func (s *Store) Set(w http.ResponseWriter, audience domainauth.Audience, pair domainauth.TokenPair) {
	http.SetCookie(w, s.cookie(cookieParams{
		name:     AccessCookieName(audience),
		value:    pair.Access,
		httpOnly: true,
		maxAge:   int(s.accessTTL.Seconds()),
	}))
	http.SetCookie(w, s.cookie(cookieParams{
		name:     RefreshCookieName(audience),
		value:    pair.Refresh,
		httpOnly: true,
		maxAge:   int(s.refreshTTL.Seconds()),
	}))
	http.SetCookie(w, s.cookie(cookieParams{
		name:     PresenceCookieName(audience),
		value:    presenceValue,
		httpOnly: false,
		maxAge:   int(s.refreshTTL.Seconds()),
	}))
}

// Get reads the audience's token pair from the request cookies. The boolean
// is true when either token cookie is present; the refresh flow still works
// after the shorter-lived access cookie has expired.
func (s *Store) Get(r *http.Request, audience domainauth.Audience) (domainauth.TokenPair, bool) {
	var pair domainauth.TokenPair
	if c, err := r.Cookie(AccessCookieName(audience)); err == nil {
		pair.Access = c.Value
	}
	if c, err := r.Cookie(RefreshCookieName(audience)); err == nil {
		pair.Refresh = c.Value
	}
	return pair, pair.Access != "" || pair.Refresh != ""
}

// Clear expires all cookies for the audience. Clearing twice is a no-op the
// second time; the same expired cookies are written again.
func (s *Store) Clear(w http.ResponseWriter, audience domainauth.Audience) {
	for _, name := range []string{
		AccessCookieName(audience),
		RefreshCookieName(audience),
		PresenceCookieName(audience),
	} {
		c := s.cookie(cookieParams{name: name, value: "", httpOnly: name != PresenceCookieName(audience)})
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0).UTC()
		http.SetCookie(w, c)
	}
}

// cookieParams groups cookie attributes for cookie (≤3 params rule).
type cookieParams struct {
	name     string
	value    string
	httpOnly bool
	maxAge   int
}

func (s *Store) cookie(p cookieParams) *http.Cookie {
	return &http.Cookie{
		Name:     p.name,
		Value:    p.value,
		Path:     "/",
		Domain:   s.domain,
		HttpOnly: p.httpOnly,
		Secure:   s.secure,
		SameSite: s.sameSite,
		MaxAge:   p.maxAge,
	}
}

// AccessCookieName returns the httpOnly access token cookie name for the audience.
func AccessCookieName(audience domainauth.Audience) string {
	if audience == domainauth.AudienceAdmin {
		return adminAccessCookie
	}
	return userAccessCookie
}

// RefreshCookieName returns the httpOnly refresh token cookie name for the audience.
func RefreshCookieName(audience domainauth.Audience) string {
	if audience == domainauth.AudienceAdmin {
		return adminRefreshCookie
	}
	return userRefreshCookie
}

// PresenceCookieName returns the non-httpOnly presence flag cookie name for the audience.
func PresenceCookieName(audience domainauth.Audience) string {
	if audience == domainauth.AudienceAdmin {
		return adminPresenceCookie
	}
	return userPresenceCookie
}
