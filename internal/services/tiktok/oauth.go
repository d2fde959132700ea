package tiktok

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
)

const (
	authorizePath = "/v2/auth/authorize/"
	tokenPath     = "/v2/oauth/token/"
)

// OAuthError is the flat error body returned by the token endpoint when a
// grant is rejected.
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
	LogID       string `json:"log_id"`
}

func (e *OAuthError) Error() string {
	description := strings.TrimSpace(e.Description)
	if description == "" {
		return fmt.Sprintf("tiktok oauth error %s", e.Code)
	}
	return fmt.Sprintf("tiktok oauth error %s: %s", e.Code, description)
}

// TokenBundle carries the account tokens minted by a grant, with the
// endpoint's relative lifetimes resolved to absolute expirations.
type TokenBundle struct {
	OpenID           string
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
	Scope            string
}

// AuthorizeURL builds the authorize redirect for the configured app. The
// state value round-trips through TikTok and must be validated on callback.
func (c *Client) AuthorizeURL(state string) string {
	values := url.Values{}
	values.Set("client_key", c.clientKey)
	values.Set("scope", strings.Join(c.scopes, ","))
	values.Set("response_type", "code")
	values.Set("redirect_uri", c.redirectURI)
	values.Set("state", state)
	return c.authBaseURL + authorizePath + "?" + values.Encode()
}

// ExchangeCode trades an authorization code from the OAuth callback for the
// account's token bundle.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenBundle, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("tiktok exchange: code required")
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)
	return c.requestToken(ctx, form)
}

// RefreshToken exchanges a refresh token for a fresh bundle. TikTok may
// rotate the refresh token, so callers persist both values.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenBundle, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, errors.New("tiktok refresh: refresh token required")
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.requestToken(ctx, form)
}

type tokenResponse struct {
	AccessToken      string  `json:"access_token"`
	ExpiresIn        float64 `json:"expires_in"`
	OpenID           string  `json:"open_id"`
	RefreshToken     string  `json:"refresh_token"`
	RefreshExpiresIn float64 `json:"refresh_expires_in"`
	Scope            string  `json:"scope"`
	TokenType        string  `json:"token_type"`

	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
	LogID            string `json:"log_id"`
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (*TokenBundle, error) {
	if c.clientKey == "" || c.clientSecret == "" {
		return nil, errors.New("tiktok oauth: client credentials required")
	}
	form.Set("client_key", c.clientKey)
	form.Set("client_secret", c.clientSecret)

	endpoint := c.apiBaseURL + tokenPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build tiktok token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tiktok token request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tiktok token response: %w", err)
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("tiktok token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return nil, fmt.Errorf("decode tiktok token response: %w", err)
	}
	if payload.ErrorCode != "" && payload.ErrorCode != "ok" {
		return nil, &OAuthError{Code: payload.ErrorCode, Description: payload.ErrorDescription, LogID: payload.LogID}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("tiktok token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if payload.AccessToken == "" {
		return nil, errors.New("tiktok token response missing access_token")
	}

	now := time.Now()
	bundle := &TokenBundle{
		OpenID:       payload.OpenID,
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		Scope:        payload.Scope,
	}
	if payload.ExpiresIn > 0 {
		bundle.ExpiresAt = now.Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	if payload.RefreshExpiresIn > 0 {
		bundle.RefreshExpiresAt = now.Add(time.Duration(payload.RefreshExpiresIn) * time.Second)
	}
	return bundle, nil
}
