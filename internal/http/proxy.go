package httpx

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	"github.com/triviahub/th-auth-api/internal/ports"
)

// contentProxyPrefix is stripped before forwarding to the backend.
const contentProxyPrefix = "/api/content"

// NewContentProxy builds the reverse proxy that forwards authorized content
// requests to the backend with the caller's bearer token attached. The
// gateway does not interpret content payloads.
func NewContentProxy(backendBaseURL string, tokens ports.TokenStore, logger *slog.Logger) (http.Handler, error) {
	target, err := url.Parse(backendBaseURL)
	if err != nil {
		return nil, err
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, contentProxyPrefix)
			if pr.Out.URL.Path == "" {
				pr.Out.URL.Path = "/"
			}
			pr.Out.Header.Del("Cookie")
			if pair, ok := tokens.Get(pr.In, domainauth.AudienceUser); ok && pair.Access != "" {
				pr.Out.Header.Set("Authorization", "Bearer "+pair.Access)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, proxyErr error) {
			logger.Warn("content proxy failed", "path", r.URL.Path, "error", proxyErr)
			WriteError(w, ErrorParams{
				Code:    http.StatusBadGateway,
				ErrCode: "backend_unavailable",
				Err:     proxyErr,
			})
		},
	}
	return proxy, nil
}
