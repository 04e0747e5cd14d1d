package cms

// Package cms is the HTTP adapter for the headless content backend. It owns
// credential verification, token refresh, identity resolution, and the
// logout notification, mapping backend status codes and payloads onto the
// gateway's error taxonomy.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	apperrors "github.com/triviahub/th-auth-api/internal/errors"
	"github.com/triviahub/th-auth-api/internal/ports"
)

// Endpoint paths on the content backend, per audience.
const (
	userLoginPath   = "/auth/local"
	adminLoginPath  = "/admin/login"
	refreshPath     = "/auth/refresh-token"
	userWhoAmIPath  = "/users/me"
	adminWhoAmIPath = "/admin/users/me"
	adminLogoutPath = "/admin/logout"
)

// Config captures runtime configuration for the backend client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
}

// Client implements ports.Backend against the CMS REST API.
type Client struct {
	baseURL    string
	retryLimit int
	client     *http.Client
}

var _ ports.Backend = (*Client)(nil)

// NewClient constructs a backend client from config. Callers must provide a base URL.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("cms backend base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	retries := max(cfg.RetryLimit, 0)

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    base,
		retryLimit: retries,
		client:     hc,
	}, nil
}

// loginResponse is the strict shape of a successful login payload.
// Token and RefreshToken are required; exactly one profile variant is set.
type loginResponse struct {
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken"`
	User         *userProfile    `json:"user"`
	Admin        *adminProfile   `json:"admin"`
}

// refreshResponse is the strict shape of a successful refresh payload.
// RefreshToken is optional; the backend only sends it when rotating.
type refreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type userProfile struct {
	ID               json.Number `json:"id"`
	Email            string      `json:"email"`
	Username         string      `json:"username"`
	Role             string      `json:"role"`
	Subscription     string      `json:"subscriptionStatus"`
	PremiumExpiresAt *time.Time  `json:"premiumExpiresAt"`
}

type adminProfile struct {
	ID              json.Number     `json:"id"`
	Email           string          `json:"email"`
	Role            string          `json:"role"`
	Permissions     map[string]bool `json:"permissions"`
	AllowedSections []string        `json:"allowedSections"`
	Active          *bool           `json:"active"`
}

// Login verifies credentials against the audience's login endpoint.
func (c *Client) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	if !in.Audience.Valid() {
		return nil, apperrors.Validation("unknown audience")
	}
	if in.Identifier == "" || in.Secret == "" {
		return nil, apperrors.Validation("identifier and secret are required")
	}

	path := userLoginPath
	body := map[string]string{"identifier": in.Identifier, "password": in.Secret}
	if in.Audience == domainauth.AudienceAdmin {
		path = adminLoginPath
		body = map[string]string{"email": in.Identifier, "password": in.Secret}
	}

	raw, err := c.post(ctx, path, body, "")
	if err != nil {
		return nil, mapCallError(err, opLogin)
	}

	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMalformedResponse, "decode login response")
	}
	if resp.Token == "" || resp.RefreshToken == "" {
		return nil, apperrors.MalformedResponse("login response missing token pair")
	}

	identity, err := mapProfile(in.Audience, resp.User, resp.Admin)
	if err != nil {
		return nil, err
	}

	return &ports.LoginResult{
		Tokens:   domainauth.TokenPair{Access: resp.Token, Refresh: resp.RefreshToken},
		Identity: identity,
	}, nil
}

// Refresh exchanges a refresh token for a new token pair. When the backend
// does not rotate the refresh token, the old one is carried forward.
func (c *Client) Refresh(ctx context.Context, audience domainauth.Audience, refreshToken string) (domainauth.TokenPair, error) {
	if refreshToken == "" {
		return domainauth.TokenPair{}, apperrors.RefreshInvalid("refresh token is required")
	}

	raw, err := c.post(ctx, refreshPath, map[string]string{"refreshToken": refreshToken}, "")
	if err != nil {
		return domainauth.TokenPair{}, mapCallError(err, opRefresh)
	}

	var resp refreshResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domainauth.TokenPair{}, apperrors.Wrap(err, apperrors.ErrCodeMalformedResponse, "decode refresh response")
	}
	if resp.Token == "" {
		return domainauth.TokenPair{}, apperrors.MalformedResponse("refresh response missing token")
	}

	pair := domainauth.TokenPair{Access: resp.Token, Refresh: resp.RefreshToken}
	if pair.Refresh == "" {
		pair.Refresh = refreshToken
	}
	return pair, nil
}

// WhoAmI validates an access token against the audience's whoami endpoint.
func (c *Client) WhoAmI(ctx context.Context, audience domainauth.Audience, accessToken string) (domainauth.Identity, error) {
	if accessToken == "" {
		return domainauth.Identity{}, apperrors.TokenInvalid("access token is required")
	}

	path := userWhoAmIPath
	if audience == domainauth.AudienceAdmin {
		path = adminWhoAmIPath
	}

	raw, err := c.get(ctx, path, accessToken)
	if err != nil {
		return domainauth.Identity{}, mapCallError(err, opWhoAmI)
	}

	if audience == domainauth.AudienceAdmin {
		var profile adminProfile
		if err := json.Unmarshal(raw, &profile); err != nil {
			return domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeMalformedResponse, "decode admin profile")
		}
		return mapProfile(audience, nil, &profile)
	}

	var profile userProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return domainauth.Identity{}, apperrors.Wrap(err, apperrors.ErrCodeMalformedResponse, "decode user profile")
	}
	return mapProfile(audience, &profile, nil)
}

// Logout notifies the backend that the token should be discarded.
// The user audience has no logout endpoint; cookie clearing is sufficient.
func (c *Client) Logout(ctx context.Context, audience domainauth.Audience, accessToken string) error {
	if audience != domainauth.AudienceAdmin || accessToken == "" {
		return nil
	}
	if _, err := c.post(ctx, adminLogoutPath, struct{}{}, accessToken); err != nil {
		return mapCallError(err, opLogout)
	}
	return nil
}

// mapProfile converts a backend profile into the audience's identity variant,
// rejecting payloads that lack required fields.
func mapProfile(audience domainauth.Audience, user *userProfile, admin *adminProfile) (domainauth.Identity, error) {
	if audience == domainauth.AudienceAdmin {
		if admin == nil {
			return domainauth.Identity{}, apperrors.MalformedResponse("login response missing admin profile")
		}
		if admin.ID.String() == "" || admin.Email == "" || admin.Role == "" {
			return domainauth.Identity{}, apperrors.MalformedResponse("admin profile missing required fields")
		}
		active := true
		if admin.Active != nil {
			active = *admin.Active
		}
		return domainauth.Identity{
			Audience: audience,
			Admin: &domainauth.AdminIdentity{
				ID:              admin.ID.String(),
				Email:           admin.Email,
				Role:            domainauth.AdminRole(admin.Role),
				Permissions:     domainauth.PermissionSet(admin.Permissions),
				AllowedSections: admin.AllowedSections,
				Active:          active,
			},
		}, nil
	}

	if user == nil {
		return domainauth.Identity{}, apperrors.MalformedResponse("login response missing user profile")
	}
	if user.ID.String() == "" || user.Email == "" {
		return domainauth.Identity{}, apperrors.MalformedResponse("user profile missing required fields")
	}
	sub := domainauth.SubscriptionStatus(user.Subscription)
	if sub == "" {
		sub = domainauth.SubscriptionFree
	}
	return domainauth.Identity{
		Audience: audience,
		User: &domainauth.UserIdentity{
			ID:               user.ID.String(),
			Email:            user.Email,
			Username:         user.Username,
			Role:             user.Role,
			Subscription:     sub,
			PremiumExpiresAt: user.PremiumExpiresAt,
		},
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body any, bearer string) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return c.do(ctx, requestParams{method: http.MethodPost, path: path, body: payload, bearer: bearer})
}

func (c *Client) get(ctx context.Context, path, bearer string) ([]byte, error) {
	return c.do(ctx, requestParams{method: http.MethodGet, path: path, bearer: bearer})
}

// requestParams groups request inputs for do (≤3 params rule).
type requestParams struct {
	method string
	path   string
	body   []byte
	bearer string
}

// do performs the request with bounded retries on transport errors and 5xx
// responses. 4xx responses are never retried.
func (c *Client) do(ctx context.Context, p requestParams) ([]byte, error) {
	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		raw, err := c.submit(ctx, p)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && se.status < 500 {
			return nil, err
		}
		if attempt < attempts-1 {
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return nil, lastErr
}

func (c *Client) submit(ctx context.Context, p requestParams) ([]byte, error) {
	var reader io.Reader
	if p.body != nil {
		reader = bytes.NewReader(p.body)
	}
	req, err := http.NewRequestWithContext(ctx, p.method, c.baseURL+p.path, reader)
	if err != nil {
		return nil, fmt.Errorf("create backend request: %w", err)
	}
	if p.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+p.bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{status: resp.StatusCode, message: extractErrorMessage(raw)}
	}
	return raw, nil
}

// statusError carries a non-2xx backend status plus the best human-readable
// message we could pluck from the payload.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("backend returned status %d", e.status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.status, e.message)
}

// errorMessageExprs are tried in order against error payloads. The CMS emits
// different error envelope shapes depending on endpoint generation, so the
// message is located with JMESPath rather than a fixed struct. Success
// payloads are always decoded strictly.
var errorMessageExprs = []string{
	"error.message",
	"message[0].messages[0].message",
	"message",
	"error",
}

func extractErrorMessage(raw []byte) string {
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return strings.TrimSpace(string(raw))
	}
	for _, expr := range errorMessageExprs {
		result, err := jmespath.Search(expr, data)
		if err != nil {
			continue
		}
		if msg, ok := result.(string); ok && msg != "" {
			return msg
		}
	}
	return ""
}

// operation distinguishes status-code mapping by call site.
type operation int

const (
	opLogin operation = iota
	opRefresh
	opWhoAmI
	opLogout
)

// mapCallError translates transport and status errors into the error taxonomy.
func mapCallError(err error, op operation) error {
	var se *statusError
	if !errors.As(err, &se) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return apperrors.Wrap(err, apperrors.ErrCodeBackendUnavailable, "content backend unreachable")
	}

	if se.status >= 500 {
		return apperrors.Wrap(se, apperrors.ErrCodeBackendUnavailable, "content backend error")
	}

	switch op {
	case opLogin:
		// The CMS answers bad credentials with 400 on older endpoints and
		// 401 on newer ones.
		if se.status == http.StatusBadRequest || se.status == http.StatusUnauthorized || se.status == http.StatusForbidden {
			return apperrors.Wrap(se, apperrors.ErrCodeInvalidCredentials, "identifier or password is incorrect")
		}
	case opRefresh:
		if se.status == http.StatusBadRequest || se.status == http.StatusUnauthorized || se.status == http.StatusForbidden {
			return apperrors.Wrap(se, apperrors.ErrCodeRefreshInvalid, "refresh token rejected")
		}
	case opWhoAmI:
		if se.status == http.StatusUnauthorized || se.status == http.StatusForbidden {
			if strings.Contains(strings.ToLower(se.message), "expired") {
				return apperrors.Wrap(se, apperrors.ErrCodeTokenExpired, "access token expired")
			}
			return apperrors.Wrap(se, apperrors.ErrCodeTokenInvalid, "access token rejected")
		}
	case opLogout:
		// Logout is best-effort; any 4xx is still a failure for the caller to log.
	}

	return apperrors.Wrap(se, apperrors.ErrCodeInternal, "unexpected backend response")
}
