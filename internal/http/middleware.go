package httpx

// Package httpx wires the auth gateway's HTTP surface: route gating, the
// authoritative auth middleware, auth handlers, and the content proxy.

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/triviahub/th-auth-api/internal/adapters/cookies"
	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	apperrors "github.com/triviahub/th-auth-api/internal/errors"
	"github.com/triviahub/th-auth-api/internal/ports"
	"github.com/triviahub/th-auth-api/internal/service"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// pathClass buckets a page path for the gate's redirect decisions.
type pathClass int

const (
	classPublic pathClass = iota
	classRoot
	classUserLogin
	classUserProtected
	classAdminLogin
	classAdminProtected
)

// userProtectedPrefixes lists the user-space page prefixes that require a
// logged-in end user.
var userProtectedPrefixes = []string{"/dashboard", "/play", "/account"}

func classifyPath(path string) pathClass {
	switch {
	case path == "/":
		return classRoot
	case path == "/login":
		return classUserLogin
	case path == "/admin/login":
		return classAdminLogin
	case path == "/admin" || strings.HasPrefix(path, "/admin/"):
		return classAdminProtected
	}
	for _, prefix := range userProtectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return classUserProtected
		}
	}
	return classPublic
}

// Gate returns the page-gating middleware. It reads only the non-httpOnly
// presence cookies as a fast-path hint; protected pages without the expected
// cookie redirect to the matching login page, and login pages with an
// existing cookie redirect to the matching dashboard. The authoritative
// token check happens again in RequireUser/RequireAdmin at the API layer.
func Gate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userPresent := hasPresenceCookie(r, domainauth.AudienceUser)
			adminPresent := hasPresenceCookie(r, domainauth.AudienceAdmin)

			switch classifyPath(r.URL.Path) {
			case classRoot:
				// Admin wins when both cookies exist; an admin who also
				// plays still lands on the tool they signed into last.
				if adminPresent {
					http.Redirect(w, r, "/admin/dashboard", http.StatusFound)
					return
				}
				if userPresent {
					http.Redirect(w, r, "/dashboard", http.StatusFound)
					return
				}
			case classUserLogin:
				if userPresent {
					http.Redirect(w, r, "/dashboard", http.StatusFound)
					return
				}
			case classAdminLogin:
				if adminPresent {
					http.Redirect(w, r, "/admin/dashboard", http.StatusFound)
					return
				}
			case classUserProtected:
				if !userPresent {
					http.Redirect(w, r, "/login", http.StatusFound)
					return
				}
			case classAdminProtected:
				if !adminPresent {
					http.Redirect(w, r, "/admin/login", http.StatusFound)
					return
				}
			case classPublic:
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hasPresenceCookie(r *http.Request, audience domainauth.Audience) bool {
	c, err := r.Cookie(cookies.PresenceCookieName(audience))
	return err == nil && c.Value != ""
}

// authDeps groups what the authoritative middleware needs.
type authDeps struct {
	auth   *service.AuthService
	tokens ports.TokenStore
}

// RequireUser returns a middleware that resolves the user audience's access
// token into an identity and stores it in the request context. Missing or
// invalid tokens get a 401; invalid (not merely expired) tokens also clear
// the audience's cookies so the client stops replaying them.
func RequireUser(auth *service.AuthService, tokens ports.TokenStore) func(http.Handler) http.Handler {
	deps := authDeps{auth: auth, tokens: tokens}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := deps.resolve(w, r, domainauth.AudienceUser)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(SetIdentityInContext(r.Context(), identity)))
		})
	}
}

// RequireAdmin returns a middleware that resolves the admin audience's token
// and additionally requires every listed permission. Permission failures are
// 403, never 401; the caller is authenticated, just not allowed.
func RequireAdmin(auth *service.AuthService, tokens ports.TokenStore, perms ...string) func(http.Handler) http.Handler {
	deps := authDeps{auth: auth, tokens: tokens}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := deps.resolve(w, r, domainauth.AudienceAdmin)
			if !ok {
				return
			}
			if !service.Authorize(identity, perms) {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: string(apperrors.ErrCodeUnauthorized),
					Err:     errors.New("insufficient permissions"),
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(SetIdentityInContext(r.Context(), identity)))
		})
	}
}

func (d authDeps) resolve(w http.ResponseWriter, r *http.Request, audience domainauth.Audience) (*domainauth.Identity, bool) {
	pair, ok := d.tokens.Get(r, audience)
	if !ok || pair.Access == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: string(apperrors.ErrCodeTokenInvalid),
			Err:     errors.New("authentication required"),
		})
		return nil, false
	}

	identity, err := d.auth.Session(r.Context(), audience, pair.Access)
	if err != nil {
		if apperrors.IsTokenInvalid(err) {
			// Expired tokens keep their cookies; the refresh flow needs the
			// refresh cookie. Invalid ones are cleared outright.
			d.tokens.Clear(w, audience)
		}
		WriteAppError(w, err)
		return nil, false
	}
	return &identity, true
}
