package server

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reelpress/internal/api"
	"reelpress/internal/logging"
	"reelpress/internal/queue"
)

// oauthStateTTL bounds how long an issued authorize state stays redeemable.
const oauthStateTTL = 10 * time.Minute

// stateCache issues single-use state tokens for the OAuth authorize
// round-trip.
type stateCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
}

func newStateCache(ttl time.Duration) *stateCache {
	return &stateCache{entries: make(map[string]time.Time), ttl: ttl}
}

// Issue mints a state token valid for the cache TTL.
func (c *stateCache) Issue() string {
	state := uuid.NewString()
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for token, expiry := range c.entries {
		if now.After(expiry) {
			delete(c.entries, token)
		}
	}
	c.entries[state] = now.Add(c.ttl)
	return state
}

// Consume redeems a state token exactly once.
func (c *stateCache) Consume(state string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	expiry, ok := c.entries[state]
	if !ok {
		return false
	}
	delete(c.entries, state)
	return time.Now().Before(expiry)
}

func (s *Server) handleOAuthConnect(c *gin.Context) {
	if s.tiktok == nil || !s.tiktok.Configured() {
		respondError(c, http.StatusServiceUnavailable, "configuration", "TikTok integration is not configured")
		return
	}
	state := s.states.Issue()
	c.Redirect(http.StatusFound, s.tiktok.AuthorizeURL(state))
}

func (s *Server) handleOAuthCallback(c *gin.Context) {
	logger := logging.WithContext(c.Request.Context(), s.logger)

	if s.tiktok == nil || !s.tiktok.Configured() {
		respondError(c, http.StatusServiceUnavailable, "configuration", "TikTok integration is not configured")
		return
	}
	if denied := strings.TrimSpace(c.Query("error")); denied != "" {
		respondError(c, http.StatusBadRequest, "oauth_denied", "Authorization was not granted: "+denied)
		return
	}
	if !s.states.Consume(c.Query("state")) {
		respondError(c, http.StatusBadRequest, "validation", "Unknown or expired state parameter; restart the connect flow")
		return
	}
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		respondError(c, http.StatusBadRequest, "validation", "Missing code parameter")
		return
	}

	bundle, err := s.tiktok.ExchangeCode(c.Request.Context(), code)
	if err != nil {
		logger.Error("tiktok code exchange failed", logging.Error(err))
		respondError(c, http.StatusBadGateway, "oauth_exchange", "TikTok rejected the authorization code")
		return
	}

	account := &queue.Account{
		OpenID:           bundle.OpenID,
		AccessToken:      bundle.AccessToken,
		RefreshToken:     bundle.RefreshToken,
		ExpiresAt:        bundle.ExpiresAt,
		RefreshExpiresAt: bundle.RefreshExpiresAt,
		Scopes:           bundle.Scope,
	}
	if user, err := s.tiktok.UserInfo(c.Request.Context(), bundle.AccessToken); err != nil {
		logger.Warn("tiktok user info fetch failed; storing account without profile", logging.Error(err))
	} else {
		if account.OpenID == "" {
			account.OpenID = user.OpenID
		}
		account.DisplayName = user.DisplayName
		account.AvatarURL = user.AvatarURL
	}
	if account.OpenID == "" {
		respondError(c, http.StatusBadGateway, "oauth_exchange", "TikTok response did not include an open_id")
		return
	}

	if err := s.store.UpsertAccount(c.Request.Context(), account); err != nil {
		logger.Error("failed to persist connected account", logging.Error(err))
		respondError(c, http.StatusInternalServerError, "internal", "Failed to store connected account")
		return
	}

	logger.Info("tiktok account connected",
		logging.String("open_id", account.OpenID),
		logging.String("display_name", account.DisplayName),
	)
	c.JSON(http.StatusOK, gin.H{
		"connected":    true,
		"open_id":      account.OpenID,
		"display_name": account.DisplayName,
	})
}

func (s *Server) handleAccounts(c *gin.Context) {
	accounts, err := s.store.ListAccounts(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal", "Failed to list accounts")
		return
	}
	response := api.AccountListResponse{Accounts: make([]api.AccountView, 0, len(accounts))}
	for _, account := range accounts {
		response.Accounts = append(response.Accounts, api.AccountViewFrom(account))
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleRemoveAccount(c *gin.Context) {
	openID := strings.TrimSpace(c.Param("open_id"))
	if openID == "" {
		respondError(c, http.StatusBadRequest, "validation", "open_id is required")
		return
	}
	removed, err := s.store.RemoveAccount(c.Request.Context(), openID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal", "Failed to remove account")
		return
	}
	if !removed {
		respondError(c, http.StatusNotFound, "not_found", "No connected account "+openID)
		return
	}
	s.logger.Info("tiktok account removed", logging.String("open_id", openID))
	c.JSON(http.StatusOK, api.RemoveAccountResponse{Removed: true, OpenID: openID})
}
