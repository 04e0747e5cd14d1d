package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	"github.com/triviahub/th-auth-api/internal/ports"
	"github.com/triviahub/th-auth-api/internal/service"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth   *service.AuthService
	Tokens ports.TokenStore

	// BackendBaseURL enables the content proxy when non-empty.
	BackendBaseURL string
	CookieDomain   string
	// EnableCSRF guards browser-origin POSTs to auth endpoints.
	EnableCSRF bool
	Logger     *slog.Logger
}

// NewRouter creates and configures the gateway's HTTP handler.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	authHandlers := &AuthHandlers{Svc: services.Auth, Tokens: services.Tokens, Logger: logger}

	registerAuthRoutes(mux, authHandlers, services)
	registerAdminRoutes(mux, services)
	registerPageRoutes(mux)
	registerContentProxy(mux, services, logger)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	var handler http.Handler = mux
	handler = Gate()(handler)
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, services RouterServices) {
	csrf := func(next http.Handler) http.Handler { return next }
	if services.EnableCSRF {
		csrf = CSRFProtection(CSRFConfig{CookieDomain: services.CookieDomain})
	}

	register := func(prefix string, audience domainauth.Audience) {
		mux.Handle("POST "+prefix+"/login", csrf(h.Login(audience)))
		mux.Handle("POST "+prefix+"/refresh", csrf(h.Refresh(audience)))
		mux.Handle("GET "+prefix+"/session", csrf(h.Session(audience)))
		mux.Handle("POST "+prefix+"/logout", csrf(h.Logout(audience)))
	}
	register("/api/auth", domainauth.AudienceUser)
	register("/api/admin/auth", domainauth.AudienceAdmin)
}

func registerAdminRoutes(mux *http.ServeMux, services RouterServices) {
	requireAdmin := RequireAdmin(services.Auth, services.Tokens)
	mux.Handle("GET /api/admin/sections/{section}", requireAdmin(SectionHandler()))
}

func registerPageRoutes(mux *http.ServeMux) {
	mux.Handle("GET /{$}", pageHandler("landing"))
	mux.Handle("GET /login", pageHandler("login"))
	mux.Handle("GET /dashboard", pageHandler("dashboard"))
	mux.Handle("GET /play", pageHandler("play"))
	mux.Handle("GET /account", pageHandler("account"))
	mux.Handle("GET /admin/login", pageHandler("admin_login"))
	mux.Handle("GET /admin/dashboard", pageHandler("admin_dashboard"))
}

func registerContentProxy(mux *http.ServeMux, services RouterServices, logger *slog.Logger) {
	if services.BackendBaseURL == "" {
		return
	}
	proxy, err := NewContentProxy(services.BackendBaseURL, services.Tokens, logger)
	if err != nil {
		logger.Error("content proxy disabled, bad backend URL", "error", err)
		return
	}
	requireUser := RequireUser(services.Auth, services.Tokens)
	mux.Handle("/api/content/", requireUser(proxy))
}
