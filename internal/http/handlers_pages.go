package httpx

import (
	"errors"
	"net/http"

	apperrors "github.com/triviahub/th-auth-api/internal/errors"
	"github.com/triviahub/th-auth-api/internal/service"
)

// pageHandler answers page-shell requests with the page name. The browser
// client renders the actual views; the gateway only decides who may load
// which shell (via the Gate middleware in front of these routes).
func pageHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"page": name})
	}
}

// SectionHandler answers admin section lookups: the identity must be allowed
// into the requested dashboard section.
func SectionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		section := r.PathValue("section")
		identity, _ := GetIdentityFromContext(r.Context())

		if !service.AuthorizeSection(identity, section) {
			WriteError(w, ErrorParams{
				Code:    http.StatusForbidden,
				ErrCode: string(apperrors.ErrCodeUnauthorized),
				Err:     errors.New("section access denied"),
			})
			return
		}

		WriteJSON(w, http.StatusOK, map[string]any{
			"section":     section,
			"permissions": service.SectionRequirements(section),
		})
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
