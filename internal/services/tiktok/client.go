package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reelpress/internal/config"
)

const (
	defaultAuthBaseURL = "https://www.tiktok.com"
	defaultAPIBaseURL  = "https://open.tiktokapis.com"
	defaultHTTPTimeout = 15 * time.Second
)

// Client wraps the TikTok open API endpoints used for account linking and
// pull-from-URL publishing.
type Client struct {
	clientKey    string
	clientSecret string
	redirectURI  string
	scopes       []string
	enabled      bool

	authBaseURL string
	apiBaseURL  string
	httpClient  *http.Client
}

// Option customizes the TikTok client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAuthBaseURL overrides the authorize redirect host (used in tests).
func WithAuthBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.authBaseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithAPIBaseURL overrides the open API host (used in tests).
func WithAPIBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.apiBaseURL = strings.TrimRight(base, "/")
		}
	}
}

// NewClient constructs a TikTok API client from the tiktok config section.
func NewClient(cfg config.TikTok, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.RequestTimeout > 0 {
		timeout = time.Duration(cfg.RequestTimeout) * time.Second
	}
	client := &Client{
		clientKey:    strings.TrimSpace(cfg.ClientKey),
		clientSecret: strings.TrimSpace(cfg.ClientSecret),
		redirectURI:  strings.TrimSpace(cfg.RedirectURI),
		scopes:       append([]string(nil), cfg.Scopes...),
		enabled:      cfg.Enabled,
		authBaseURL:  defaultAuthBaseURL,
		apiBaseURL:   defaultAPIBaseURL,
		httpClient:   &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	return client
}

// Configured reports whether the client carries everything needed to talk
// to the TikTok API.
func (c *Client) Configured() bool {
	return c.enabled && c.clientKey != "" && c.clientSecret != "" && c.redirectURI != ""
}

// APIError is the error envelope returned by TikTok open API endpoints.
// The code "ok" marks success and never surfaces as an error value.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

func (e *APIError) Error() string {
	message := strings.TrimSpace(e.Message)
	if message == "" {
		return fmt.Sprintf("tiktok api error %s", e.Code)
	}
	return fmt.Sprintf("tiktok api error %s: %s", e.Code, message)
}

func (e *APIError) success() bool {
	return e == nil || e.Code == "" || e.Code == "ok"
}

func (c *Client) getJSON(ctx context.Context, path, accessToken string, query url.Values, out any) error {
	endpoint := c.apiBaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build tiktok request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	return c.send(req, out)
}

func (c *Client) postJSON(ctx context.Context, path, accessToken string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode tiktok request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build tiktok request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tiktok request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read tiktok response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		// The API keeps its error envelope in the body on HTTP failures,
		// so surface it whenever it parses.
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil && !envelope.Error.success() {
			return envelope.Error
		}
		return fmt.Errorf("tiktok %s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode tiktok response: %w", err)
	}
	return nil
}
