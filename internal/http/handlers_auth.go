package httpx

import (
	"log/slog"
	"net"
	"net/http"

	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	apperrors "github.com/triviahub/th-auth-api/internal/errors"
	"github.com/triviahub/th-auth-api/internal/ports"
	"github.com/triviahub/th-auth-api/internal/service"
)

// AuthHandlers serves the login/refresh/session/logout endpoints for both
// audiences. The audience is fixed per route at registration time.
type AuthHandlers struct {
	Svc    *service.AuthService
	Tokens ports.TokenStore
	Logger *slog.Logger
}

// loginRequest is the credential submission body for both audiences.
type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// identityResponse wraps an identity for JSON responses.
type identityResponse struct {
	Identity domainauth.Identity `json:"identity"`
}

// Login handles POST login for the audience: verify credentials, then write
// the audience's cookie set in one response.
func (h *AuthHandlers) Login(audience domainauth.Audience) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !DecodeJSON(w, r, &req) {
			return
		}

		result, err := h.Svc.Login(r.Context(), service.LoginRequest{
			Audience:   audience,
			Identifier: req.Identifier,
			Secret:     req.Password,
			RemoteAddr: remoteHost(r),
		})
		if err != nil {
			WriteAppError(w, err)
			return
		}

		h.Tokens.Set(w, audience, result.Tokens)
		WriteJSON(w, http.StatusOK, identityResponse{Identity: result.Identity})
	}
}

// Refresh handles POST refresh for the audience. A rejected refresh clears
// the audience's cookies; the session is over and the client must log in
// again.
func (h *AuthHandlers) Refresh(audience domainauth.Audience) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pair, _ := h.Tokens.Get(r, audience)

		rotated, err := h.Svc.Refresh(r.Context(), audience, pair)
		if err != nil {
			if apperrors.IsRefreshInvalid(err) {
				h.Tokens.Clear(w, audience)
			}
			WriteAppError(w, err)
			return
		}

		h.Tokens.Set(w, audience, rotated)
		w.WriteHeader(http.StatusNoContent)
	}
}

// Session handles GET session for the audience: resolve the access token to
// the current identity. Expired tokens return 401 token_expired so the
// client can refresh and retry.
func (h *AuthHandlers) Session(audience domainauth.Audience) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pair, ok := h.Tokens.Get(r, audience)
		if !ok || pair.Access == "" {
			WriteAppError(w, apperrors.TokenInvalid("no session"))
			return
		}

		identity, err := h.Svc.Session(r.Context(), audience, pair.Access)
		if err != nil {
			if apperrors.IsTokenInvalid(err) {
				h.Tokens.Clear(w, audience)
			}
			WriteAppError(w, err)
			return
		}

		WriteJSON(w, http.StatusOK, identityResponse{Identity: identity})
	}
}

// Logout handles POST logout for the audience. Backend notification is
// best-effort inside the service; local cookies are always cleared.
func (h *AuthHandlers) Logout(audience domainauth.Audience) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pair, _ := h.Tokens.Get(r, audience)
		h.Svc.Logout(r.Context(), audience, pair.Access)
		h.Tokens.Clear(w, audience)
		w.WriteHeader(http.StatusNoContent)
	}
}

// remoteHost strips the port from RemoteAddr; rate limit keys and audit rows
// want the bare address.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
