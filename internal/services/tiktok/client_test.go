package tiktok

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"reelpress/internal/config"
)

func testSection() config.TikTok {
	return config.TikTok{
		Enabled:            true,
		ClientKey:          "ck_demo",
		ClientSecret:       "cs_demo",
		RedirectURI:        "https://app.example.com/auth/tiktok/callback",
		Scopes:             []string{"user.info.basic", "video.upload"},
		RequestTimeout:     5,
		TokenRefreshMargin: 300,
	}
}

func TestAuthorizeURLCarriesOAuthParameters(t *testing.T) {
	client := NewClient(testSection())

	parsed, err := url.Parse(client.AuthorizeURL("state123"))
	if err != nil {
		t.Fatalf("parse authorize url: %v", err)
	}
	if parsed.Host != "www.tiktok.com" {
		t.Fatalf("unexpected host %q", parsed.Host)
	}
	if parsed.Path != "/v2/auth/authorize/" {
		t.Fatalf("unexpected path %q", parsed.Path)
	}
	query := parsed.Query()
	expectations := map[string]string{
		"client_key":    "ck_demo",
		"scope":         "user.info.basic,video.upload",
		"response_type": "code",
		"redirect_uri":  "https://app.example.com/auth/tiktok/callback",
		"state":         "state123",
	}
	for key, want := range expectations {
		if got := query.Get(key); got != want {
			t.Fatalf("expected %s=%q, got %q", key, want, got)
		}
	}
}

func TestExchangeCodeReturnsBundle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/oauth/token/" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Fatalf("unexpected content type %q", ct)
		}
		expectations := map[string]string{
			"grant_type":    "authorization_code",
			"code":          "auth_code_1",
			"client_key":    "ck_demo",
			"client_secret": "cs_demo",
			"redirect_uri":  "https://app.example.com/auth/tiktok/callback",
		}
		for key, want := range expectations {
			if got := r.PostFormValue(key); got != want {
				t.Fatalf("expected form %s=%q, got %q", key, want, got)
			}
		}
		payload := map[string]any{
			"access_token":       "act.fresh",
			"expires_in":         86400,
			"open_id":            "open-123",
			"refresh_token":      "rft.fresh",
			"refresh_expires_in": 31536000,
			"scope":              "user.info.basic,video.upload",
			"token_type":         "Bearer",
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(testSection(), WithAPIBaseURL(server.URL))
	bundle, err := client.ExchangeCode(context.Background(), "auth_code_1")
	if err != nil {
		t.Fatalf("ExchangeCode returned error: %v", err)
	}
	if bundle.OpenID != "open-123" {
		t.Fatalf("unexpected open id %q", bundle.OpenID)
	}
	if bundle.AccessToken != "act.fresh" || bundle.RefreshToken != "rft.fresh" {
		t.Fatalf("unexpected token pair %q / %q", bundle.AccessToken, bundle.RefreshToken)
	}
	if bundle.Scope != "user.info.basic,video.upload" {
		t.Fatalf("unexpected scope %q", bundle.Scope)
	}
	if remaining := time.Until(bundle.ExpiresAt); remaining < 23*time.Hour {
		t.Fatalf("expected roughly a day of access lifetime, got %s", remaining)
	}
	if !bundle.RefreshExpiresAt.After(bundle.ExpiresAt) {
		t.Fatal("expected refresh token to outlive access token")
	}
}

func TestExchangeCodeGrantRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Authorization code is expired.",
			"log_id":            "20260821012345ABCDE",
		})
	}))
	defer server.Close()

	client := NewClient(testSection(), WithAPIBaseURL(server.URL))
	_, err := client.ExchangeCode(context.Background(), "stale")
	var oauthErr *OAuthError
	if !errors.As(err, &oauthErr) {
		t.Fatalf("expected OAuthError, got %v", err)
	}
	if oauthErr.Code != "invalid_grant" {
		t.Fatalf("unexpected oauth error code %q", oauthErr.Code)
	}
	if !strings.Contains(err.Error(), "Authorization code is expired.") {
		t.Fatalf("expected description in message, got %q", err.Error())
	}
}

func TestRefreshTokenSendsRefreshGrant(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.PostFormValue("grant_type"); got != "refresh_token" {
			t.Fatalf("unexpected grant type %q", got)
		}
		if got := r.PostFormValue("refresh_token"); got != "rft.old" {
			t.Fatalf("unexpected refresh token %q", got)
		}
		payload := map[string]any{
			"access_token":       "act.rotated",
			"expires_in":         86400,
			"open_id":            "open-123",
			"refresh_token":      "rft.rotated",
			"refresh_expires_in": 31536000,
			"scope":              "user.info.basic,video.upload",
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(testSection(), WithAPIBaseURL(server.URL))
	bundle, err := client.RefreshToken(context.Background(), "rft.old")
	if err != nil {
		t.Fatalf("RefreshToken returned error: %v", err)
	}
	if bundle.AccessToken != "act.rotated" {
		t.Fatalf("unexpected access token %q", bundle.AccessToken)
	}
	if bundle.RefreshToken != "rft.rotated" {
		t.Fatalf("expected rotated refresh token, got %q", bundle.RefreshToken)
	}
}

func TestUserInfoRequestsExplicitFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/user/info/" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if fields := r.URL.Query().Get("fields"); fields != "open_id,union_id,avatar_url,display_name" {
			t.Fatalf("unexpected fields parameter %q", fields)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer act.fresh" {
			t.Fatalf("unexpected authorization header %q", auth)
		}
		payload := map[string]any{
			"data": map[string]any{
				"user": map[string]any{
					"open_id":      "open-123",
					"union_id":     "union-456",
					"avatar_url":   "https://p16.example.com/avatar.jpeg",
					"display_name": "Reel Press",
				},
			},
			"error": map[string]any{"code": "ok", "message": "", "log_id": "x"},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(testSection(), WithAPIBaseURL(server.URL))
	user, err := client.UserInfo(context.Background(), "act.fresh")
	if err != nil {
		t.Fatalf("UserInfo returned error: %v", err)
	}
	if user.OpenID != "open-123" || user.UnionID != "union-456" {
		t.Fatalf("unexpected identity %q / %q", user.OpenID, user.UnionID)
	}
	if user.DisplayName != "Reel Press" {
		t.Fatalf("unexpected display name %q", user.DisplayName)
	}
	if user.AvatarURL == "" {
		t.Fatal("expected avatar url")
	}
}

func TestUserInfoSurfacesEnvelopeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"data": map[string]any{},
			"error": map[string]any{
				"code":    "access_token_invalid",
				"message": "The access token is invalid or not found in the request.",
				"log_id":  "20260821012345ABCDE",
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(testSection(), WithAPIBaseURL(server.URL))
	_, err := client.UserInfo(context.Background(), "act.stale")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "access_token_invalid" {
		t.Fatalf("unexpected api error code %q", apiErr.Code)
	}
}

func TestPublishFromURLReturnsPublishID(t *testing.T) {
	var received publishInitRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/post/publish/inbox/video/init/" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer act.fresh" {
			t.Fatalf("unexpected authorization header %q", auth)
		}
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Fatalf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		payload := map[string]any{
			"data":  map[string]any{"publish_id": "v_inbox_url~v2.7340"},
			"error": map[string]any{"code": "ok", "message": "", "log_id": "x"},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(testSection(), WithAPIBaseURL(server.URL))
	videoURL := "https://media.example.com/outputs/jobs/job_1/clip.mp4"
	publishID, err := client.PublishFromURL(context.Background(), "act.fresh", videoURL, "Morning surf")
	if err != nil {
		t.Fatalf("PublishFromURL returned error: %v", err)
	}
	if publishID != "v_inbox_url~v2.7340" {
		t.Fatalf("unexpected publish id %q", publishID)
	}
	if received.SourceInfo.Source != "PULL_FROM_URL" {
		t.Fatalf("unexpected source %q", received.SourceInfo.Source)
	}
	if received.SourceInfo.VideoURL != videoURL {
		t.Fatalf("unexpected video url %q", received.SourceInfo.VideoURL)
	}
	if received.PostInfo.Title != "Morning surf" {
		t.Fatalf("unexpected title %q", received.PostInfo.Title)
	}
}

func TestPublishFromURLSurfacesEnvelopeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"data": map[string]any{},
			"error": map[string]any{
				"code":    "spam_risk_too_many_posts",
				"message": "The daily post cap from API is reached for the current user.",
				"log_id":  "20260821012345ABCDE",
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(testSection(), WithAPIBaseURL(server.URL))
	_, err := client.PublishFromURL(context.Background(), "act.fresh", "https://media.example.com/clip.mp4", "Morning surf")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != "spam_risk_too_many_posts" {
		t.Fatalf("unexpected api error code %q", apiErr.Code)
	}
	if !strings.Contains(err.Error(), "daily post cap") {
		t.Fatalf("expected message in error, got %q", err.Error())
	}
}

func TestConfiguredRequiresCredentials(t *testing.T) {
	section := testSection()
	if !NewClient(section).Configured() {
		t.Fatal("expected fully populated section to be configured")
	}

	disabled := testSection()
	disabled.Enabled = false
	if NewClient(disabled).Configured() {
		t.Fatal("expected disabled section to be unconfigured")
	}

	missingSecret := testSection()
	missingSecret.ClientSecret = ""
	if NewClient(missingSecret).Configured() {
		t.Fatal("expected section without secret to be unconfigured")
	}
}
