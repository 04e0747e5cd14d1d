// Package client is the Go counterpart of the browser auth context: it talks
// to the gateway's auth endpoints, keeps cookies in a jar, and exposes the
// session as a small state machine.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"

	domainauth "github.com/triviahub/th-auth-api/internal/domain/auth"
	apperrors "github.com/triviahub/th-auth-api/internal/errors"
)

// State describes where the auth context is in its lifecycle.
type State int

const (
	// StateUninitialized means CheckSession has not run yet.
	StateUninitialized State = iota
	// StateLoading means a session check is in flight.
	StateLoading
	// StateAuthenticated means the gateway vouched for an identity.
	StateAuthenticated
	// StateAnonymous means no valid session exists.
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures an AuthClient.
type Options struct {
	// BaseURL of the gateway, e.g. "https://play.example.com".
	BaseURL string
	// Audience selects the user or admin endpoint family.
	Audience domainauth.Audience
	// HTTPClient overrides the default client. A cookie jar is installed
	// when the provided client has none.
	HTTPClient *http.Client
	// Timeout for the default client. Ignored when HTTPClient is set.
	Timeout time.Duration
	Logger  *slog.Logger
}

// AuthClient holds one audience's session against the gateway. Tokens never
// surface here; the jar carries the httpOnly cookies and the gateway decides
// what they mean.
type AuthClient struct {
	base     *url.URL
	prefix   string
	audience domainauth.Audience
	http     *http.Client
	logger   *slog.Logger

	mu       sync.RWMutex
	state    State
	identity *domainauth.Identity

	checkGroup singleflight.Group
}

// New builds an AuthClient in the Uninitialized state.
func New(opts Options) (*AuthClient, error) {
	base, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", opts.BaseURL)
	}

	audience := opts.Audience
	if audience == "" {
		audience = domainauth.AudienceUser
	}
	if !audience.Valid() {
		return nil, fmt.Errorf("unknown audience %q", opts.Audience)
	}
	prefix := "/api/auth"
	if audience == domainauth.AudienceAdmin {
		prefix = "/api/admin/auth"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthClient{
		base:     base,
		prefix:   prefix,
		audience: audience,
		http:     httpClient,
		logger:   logger.With("component", "auth_client", "audience", string(audience)),
		state:    StateUninitialized,
	}, nil
}

// Current returns the state and, when authenticated, a copy of the identity.
func (c *AuthClient) Current() (State, *domainauth.Identity) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.identity == nil {
		return c.state, nil
	}
	identity := *c.identity
	return c.state, &identity
}

// Login submits credentials. Success moves to Authenticated; the gateway's
// Set-Cookie response lands in the jar.
func (c *AuthClient) Login(ctx context.Context, identifier, password string) (domainauth.Identity, error) {
	body := map[string]string{"identifier": identifier, "password": password}
	var resp struct {
		Identity domainauth.Identity `json:"identity"`
	}
	if err := c.do(ctx, http.MethodPost, c.prefix+"/login", body, &resp); err != nil {
		return domainauth.Identity{}, err
	}
	c.setAuthenticated(resp.Identity)
	return resp.Identity, nil
}

// Logout notifies the gateway and drops local state. The notification is
// best-effort; the local session ends either way.
func (c *AuthClient) Logout(ctx context.Context) {
	if err := c.do(ctx, http.MethodPost, c.prefix+"/logout", nil, nil); err != nil {
		c.logger.Warn("logout notify failed", "error", err)
	}
	c.setAnonymous()
}

// Refresh asks the gateway to rotate the token pair. A rejected refresh ends
// the session.
func (c *AuthClient) Refresh(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, c.prefix+"/refresh", nil, nil)
	if err != nil {
		if apperrors.IsRefreshInvalid(err) {
			c.setAnonymous()
		}
		return err
	}
	return nil
}

// CheckSession resolves the current session. Concurrent calls share one HTTP
// round trip. An expired access token triggers one refresh-and-retry before
// giving up.
func (c *AuthClient) CheckSession(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.state == StateUninitialized {
		c.state = StateLoading
	}
	c.mu.Unlock()

	result, err, _ := c.checkGroup.Do("session", func() (any, error) {
		return c.resolveSession(ctx)
	})
	if err != nil {
		c.settleLoading()
		state, _ := c.Current()
		return state, err
	}
	return result.(State), nil
}

// settleLoading resolves a stuck Loading state to Anonymous after a failed
// check. An already Authenticated or Anonymous state is left alone; a
// transient gateway outage does not end an established session.
func (c *AuthClient) settleLoading() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateLoading {
		c.state = StateAnonymous
	}
}

func (c *AuthClient) resolveSession(ctx context.Context) (State, error) {
	var resp struct {
		Identity domainauth.Identity `json:"identity"`
	}
	err := c.do(ctx, http.MethodGet, c.prefix+"/session", nil, &resp)
	if err == nil {
		c.setAuthenticated(resp.Identity)
		return StateAuthenticated, nil
	}

	if apperrors.IsTokenExpired(err) {
		if refreshErr := c.Refresh(ctx); refreshErr == nil {
			if retryErr := c.do(ctx, http.MethodGet, c.prefix+"/session", nil, &resp); retryErr == nil {
				c.setAuthenticated(resp.Identity)
				return StateAuthenticated, nil
			}
		}
		c.setAnonymous()
		return StateAnonymous, nil
	}
	if apperrors.IsTokenInvalid(err) || apperrors.IsRefreshInvalid(err) {
		c.setAnonymous()
		return StateAnonymous, nil
	}
	// Transport or backend failure: the session is unknown, not over.
	return StateAnonymous, err
}

func (c *AuthClient) setAuthenticated(identity domainauth.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateAuthenticated
	c.identity = &identity
}

func (c *AuthClient) setAnonymous() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateAnonymous
	c.identity = nil
}

// do runs one JSON round trip against the gateway. Non-2xx responses decode
// the gateway's error envelope into an AppError so callers can branch on the
// taxonomy code.
func (c *AuthClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeBackendUnavailable, "gateway unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeMalformedResponse, "undecodable gateway response")
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error == "" {
		return apperrors.Newf(apperrors.ErrCodeInternal, "gateway returned status %d", resp.StatusCode)
	}
	message := envelope.Message
	if message == "" {
		message = envelope.Error
	}
	return apperrors.New(apperrors.ErrorCode(envelope.Error), message)
}
