package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Cookie names shared with the identity provider.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

const refreshPath = "auth/refresh"

var (
	// ErrSessionRejected means the provider refused the refresh token.
	ErrSessionRejected = errors.New("session rejected by identity provider")
	// ErrUnavailable covers transport failures and provider-side errors.
	ErrUnavailable = errors.New("identity provider unavailable")
)

// Client exchanges storefront refresh tokens at the identity provider.
type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func NewClient(providerURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(providerURL, "/") + "/",
		http: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	AccessExp    int64  `json:"access_exp"`
	RefreshExp   int64  `json:"refresh_exp"`
}

func (r *RefreshResponse) AccessExpiry() time.Time  { return time.Unix(r.AccessExp, 0) }
func (r *RefreshResponse) RefreshExpiry() time.Time { return time.Unix(r.RefreshExp, 0) }

// RefreshTokens trades the session cookies for a fresh pair.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken, accessToken string) (*RefreshResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build refresh request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: refreshToken})
	if accessToken != "" {
		req.AddCookie(&http.Cookie{Name: AccessCookie, Value: accessToken})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d", ErrSessionRejected, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out RefreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode refresh response: %w", ErrUnavailable, err)
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		return nil, fmt.Errorf("%w: incomplete token pair", ErrSessionRejected)
	}
	return &out, nil
}
