// Package account is a thin client for the hosted account service: OAuth
// sign-in, sign-out, session lookup, and profile records.
package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erazemk/tryon/internal/model"
)

// Client talks to the account service's auth and REST endpoints.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a client for the service at baseURL, authenticating
// every request with the public API key.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session is a remote account session.
type Session struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int        `json:"expires_in"`
	User        model.User `json:"user"`
}

// Profile is an open set of profile fields.
type Profile map[string]any

// ExchangeCode completes a redirect sign-in by trading the authorization code
// and the PKCE verifier for a session.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	if code == "" || verifier == "" {
		return nil, fmt.Errorf("exchanging code: code and verifier required")
	}

	body := map[string]string{"auth_code": code, "code_verifier": verifier}
	var s Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=pkce", "", body, nil, &s); err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}
	if s.AccessToken == "" {
		return nil, fmt.Errorf("exchanging code: no access token in response")
	}
	if s.User.ID == "" {
		u, err := UserFromAccessToken(s.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("exchanging code: %w", err)
		}
		s.User = u
	}
	return &s, nil
}

// SignOut invalidates the remote session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if err := c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil, nil); err != nil {
		return fmt.Errorf("signing out: %w", err)
	}
	return nil
}

// GetSession returns the user behind accessToken. It returns nil, nil when
// there is no token or the service no longer accepts it.
func (c *Client) GetSession(ctx context.Context, accessToken string) (*model.User, error) {
	if accessToken == "" {
		return nil, nil
	}

	var u model.User
	err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, nil, &u)
	if IsUnauthorized(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return &u, nil
}

// GetProfile reads the profile record keyed by userID.
func (c *Client) GetProfile(ctx context.Context, accessToken, userID string) (Profile, error) {
	header := http.Header{"Accept": {"application/vnd.pgrst.object+json"}}
	var p Profile
	if err := c.do(ctx, http.MethodGet, profilePath(userID)+"&select=*", accessToken, nil, header, &p); err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return p, nil
}

// UpdateProfile applies a partial update to the profile keyed by userID and
// returns the updated rows.
func (c *Client) UpdateProfile(ctx context.Context, accessToken, userID string, updates Profile) ([]Profile, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("updating profile: no fields to update")
	}

	header := http.Header{"Prefer": {"return=representation"}}
	var rows []Profile
	if err := c.do(ctx, http.MethodPatch, profilePath(userID), accessToken, updates, header, &rows); err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return rows, nil
}

func profilePath(userID string) string {
	return "/rest/v1/profiles?id=" + url.QueryEscape("eq."+userID)
}

// do sends one request. A non-2xx status becomes an *Error.
func (c *Client) do(ctx context.Context, method, path, accessToken string, body any, header http.Header, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("apikey", c.apiKey)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	slog.Debug("account service call", "method", method, "path", req.URL.Path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
