// Package registry is a client for the WHO ICD-11 API.
//
// A Client authenticates with the OAuth2 client-credentials flow. The token
// is fetched lazily on the first lookup and reused for the lifetime of the
// Client; it is never refreshed. Token failures are fatal for a run and are
// reported as ErrTokenAcquisition. Lookup failures concern a single code and
// are reported as ErrRequest.
//
// A Client is meant to be driven by one goroutine at a time.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JonMunkholm/icdload/internal/config"
	"github.com/JonMunkholm/icdload/internal/logging"
)

// EntityPathMarker separates the API root from the entity path in an entity URI.
const EntityPathMarker = "/mms/"

// tokenScope is the scope requested in the client-credentials exchange.
const tokenScope = "icdapi_access"

// maxErrorBody caps how much of an error response body is kept for logging.
const maxErrorBody = 512

var (
	// ErrTokenAcquisition is returned when no access token could be obtained.
	ErrTokenAcquisition = errors.New("access token acquisition failed")

	// ErrRequest is returned when a lookup request fails.
	ErrRequest = errors.New("registry request failed")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
}

// tokenResponse is the token endpoint's JSON response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Client calls the WHO ICD-11 API.
type Client struct {
	cfg        config.RegistryConfig
	httpClient *http.Client

	// header is sent with every lookup; Authorization is added once a token is held.
	header      http.Header
	token       string
	tokenExpiry time.Time
}

// New creates a Client. Every request, token exchange included, is bounded by cfg.Timeout.
func New(cfg config.RegistryConfig) *Client {
	header := make(http.Header)
	header.Set("Accept", "application/json")
	header.Set("Accept-Language", cfg.Language)
	header.Set("API-Version", cfg.APIVersion)

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newLoggingTransport(http.DefaultTransport),
		},
		header: header,
	}
}

// HasToken reports whether an access token has been acquired.
func (c *Client) HasToken() bool {
	return c.token != ""
}

// TokenExpiry returns when the held access token expires. ok is false if no
// token is held or its lifetime is unknown.
func (c *Client) TokenExpiry() (time.Time, bool) {
	if c.token == "" || c.tokenExpiry.IsZero() {
		return time.Time{}, false
	}
	return c.tokenExpiry, true
}

// AcquireToken returns the cached access token, performing the
// client-credentials exchange first if no token is held yet.
func (c *Client) AcquireToken(ctx context.Context) (string, error) {
	logger := logging.FromContext(ctx)

	if c.token != "" {
		logger.Debug("access token already held, reusing")
		return c.token, nil
	}

	logger.Info("requesting access token", "auth_url", c.cfg.AuthURL)

	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("scope", tokenScope)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenAcquisition, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var tok tokenResponse
	if err := c.do(req, &tok); err != nil {
		logRequestError(ctx, "access token request failed", err)
		return "", fmt.Errorf("%w: %w", ErrTokenAcquisition, err)
	}
	if tok.AccessToken == "" {
		logger.Error("token response has no access_token")
		return "", fmt.Errorf("%w: response has no access_token", ErrTokenAcquisition)
	}

	c.token = tok.AccessToken
	c.header.Set("Authorization", "Bearer "+c.token)

	claims, isJWT := ParseTokenClaims(c.token)
	c.tokenExpiry = expiryOf(claims, tok.ExpiresIn, time.Now())

	logger.Info("access token acquired", "expires_in", tok.ExpiresIn, "expires_at", c.tokenExpiry)
	logger.Debug("access token", "prefix", tokenPrefix(c.token))
	if isJWT {
		logger.Debug("access token claims",
			"issuer", claims.Issuer,
			"expires_at", claims.ExpiresAt,
			"scopes", claims.Scopes,
		)
	}
	return c.token, nil
}

// expiryOf prefers the token's exp claim over the expires_in of the
// token response. Zero means unknown.
func expiryOf(claims TokenClaims, expiresIn int, now time.Time) time.Time {
	if !claims.ExpiresAt.IsZero() {
		return claims.ExpiresAt
	}
	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second)
	}
	return time.Time{}
}

// StemByCode resolves a code through the codeinfo endpoint.
// A token is acquired first if none is held; failing that returns
// ErrTokenAcquisition.
func (c *Client) StemByCode(ctx context.Context, code string) (*CodeInfo, error) {
	if _, err := c.AcquireToken(ctx); err != nil {
		return nil, err
	}

	endpoint := c.cfg.LinearizationURL() + "/codeinfo/" + url.PathEscape(code)
	logging.FromContext(ctx).Info("looking up stem id", "code", code, "url", endpoint)

	var info CodeInfo
	if err := c.get(ctx, endpoint, &info); err != nil {
		logRequestError(ctx, "stem id lookup failed", err, "code", code)
		return nil, fmt.Errorf("%w: codeinfo %q: %w", ErrRequest, code, err)
	}
	return &info, nil
}

// EntityByReference fetches the detail record of an entity. ref may be a
// full entity URI such as
// http://id.who.int/icd/release/11/2025-01/mms/1256772020/unspecified, in
// which case only the part after EntityPathMarker is used. A ref without
// the marker is used as the path unchanged.
func (c *Client) EntityByReference(ctx context.Context, ref string) (*Entity, error) {
	if _, err := c.AcquireToken(ctx); err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)

	path, found := EntityPath(ref)
	if !found {
		logger.Warn("entity reference has no path marker, using it unchanged",
			"marker", EntityPathMarker,
			"reference", ref,
		)
	}

	endpoint := c.cfg.LinearizationURL() + "/" + path
	logger.Info("fetching entity", "path", path, "url", endpoint)

	var entity Entity
	if err := c.get(ctx, endpoint, &entity); err != nil {
		logRequestError(ctx, "entity fetch failed", err, "path", path)
		return nil, fmt.Errorf("%w: entity %q: %w", ErrRequest, path, err)
	}
	return &entity, nil
}

// EntityPath returns the part of ref following the first EntityPathMarker;
// later markers stay in the path. found is false, and ref is returned
// unchanged, if the marker is absent.
func EntityPath(ref string) (path string, found bool) {
	_, after, found := strings.Cut(ref, EntityPathMarker)
	if !found {
		return ref, false
	}
	return after, true
}

// get issues an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header = c.header.Clone()

	return c.do(req, out)
}

// do sends req and decodes a 2xx JSON response into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// logRequestError logs a failed exchange, including status and body for HTTP errors.
func logRequestError(ctx context.Context, msg string, err error, args ...any) {
	logger := logging.WithFields(ctx, args...)

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		logger.Error(msg,
			"status", statusErr.StatusCode,
			"body", statusErr.Body,
			"error", err,
		)
		return
	}
	logger.Error(msg, "error", err)
}

// tokenPrefix returns the first characters of a token, for logging.
func tokenPrefix(token string) string {
	const n = 10
	if len(token) <= n {
		return strings.Repeat("*", len(token))
	}
	return token[:n] + "..."
}
