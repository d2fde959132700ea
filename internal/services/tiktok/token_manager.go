package tiktok

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reelpress/internal/config"
	"reelpress/internal/logging"
	"reelpress/internal/queue"
)

// ErrReauthorizationRequired is returned when a stored account can no longer
// mint access tokens and the user must run the connect flow again.
var ErrReauthorizationRequired = errors.New("tiktok authorization expired; reconnect the account")

const fallbackRefreshMargin = 5 * time.Minute

// AccountTokenStore persists refreshed token bundles.
type AccountTokenStore interface {
	UpdateAccountTokens(ctx context.Context, openID, accessToken, refreshToken string, expiresAt, refreshExpiresAt time.Time) error
}

// TokenManager hands out access tokens for stored accounts, refreshing any
// bundle that expires inside the configured safety margin.
type TokenManager struct {
	client *Client
	store  AccountTokenStore
	margin time.Duration
	logger *slog.Logger
}

// NewTokenManager builds a TokenManager around the client and account store.
func NewTokenManager(cfg *config.Config, client *Client, store AccountTokenStore, logger *slog.Logger) *TokenManager {
	margin := fallbackRefreshMargin
	if cfg != nil && cfg.TikTok.TokenRefreshMargin > 0 {
		margin = time.Duration(cfg.TikTok.TokenRefreshMargin) * time.Second
	}
	managerLogger := logger
	if managerLogger == nil {
		managerLogger = logging.NewNop()
	}
	return &TokenManager{
		client: client,
		store:  store,
		margin: margin,
		logger: logging.NewComponentLogger(managerLogger, "tiktok"),
	}
}

// FreshAccessToken returns an access token valid beyond the refresh margin.
// The passed account is updated in place after a refresh so callers keep
// working with the persisted values.
func (m *TokenManager) FreshAccessToken(ctx context.Context, account *queue.Account) (string, error) {
	if account == nil {
		return "", errors.New("account is nil")
	}
	if account.AccessToken != "" && !account.TokenExpiresWithin(m.margin) {
		return account.AccessToken, nil
	}
	if strings.TrimSpace(account.RefreshToken) == "" {
		return "", ErrReauthorizationRequired
	}

	bundle, err := m.client.RefreshToken(ctx, account.RefreshToken)
	if err != nil {
		var oauthErr *OAuthError
		if errors.As(err, &oauthErr) {
			return "", fmt.Errorf("%w: %s", ErrReauthorizationRequired, oauthErr.Code)
		}
		return "", err
	}

	if m.store != nil {
		if err := m.store.UpdateAccountTokens(ctx, account.OpenID, bundle.AccessToken, bundle.RefreshToken, bundle.ExpiresAt, bundle.RefreshExpiresAt); err != nil {
			return "", fmt.Errorf("persist refreshed tokens: %w", err)
		}
	}

	account.AccessToken = bundle.AccessToken
	if bundle.RefreshToken != "" {
		account.RefreshToken = bundle.RefreshToken
	}
	account.ExpiresAt = bundle.ExpiresAt
	account.RefreshExpiresAt = bundle.RefreshExpiresAt

	m.logger.Info("refreshed tiktok access token",
		logging.String("open_id", account.OpenID),
		logging.Duration("token_lifetime", time.Until(bundle.ExpiresAt)),
	)
	return account.AccessToken, nil
}
