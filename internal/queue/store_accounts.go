package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertAccount inserts or replaces a connected account keyed by open id.
// Called whenever an OAuth callback completes so reconnecting refreshes the
// stored token bundle in place.
func (s *Store) UpsertAccount(ctx context.Context, account *Account) error {
	if account == nil {
		return errors.New("account is nil")
	}
	if account.OpenID == "" {
		return errors.New("account open id is required")
	}
	if account.AccessToken == "" {
		return errors.New("account access token is required")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO accounts (
            open_id, display_name, avatar_url, access_token, refresh_token,
            expires_at, refresh_expires_at, scopes, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(open_id) DO UPDATE SET
            display_name = excluded.display_name,
            avatar_url = excluded.avatar_url,
            access_token = excluded.access_token,
            refresh_token = excluded.refresh_token,
            expires_at = excluded.expires_at,
            refresh_expires_at = excluded.refresh_expires_at,
            scopes = excluded.scopes,
            updated_at = excluded.updated_at`,
		account.OpenID,
		nullableString(account.DisplayName),
		nullableString(account.AvatarURL),
		account.AccessToken,
		nullableString(account.RefreshToken),
		nullableTime(&account.ExpiresAt),
		nullableTime(&account.RefreshExpiresAt),
		nullableString(account.Scopes),
		timestamp,
		timestamp,
	); err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

// UpdateAccountTokens replaces only the token bundle for an account after a refresh.
func (s *Store) UpdateAccountTokens(ctx context.Context, openID, accessToken, refreshToken string, expiresAt, refreshExpiresAt time.Time) error {
	if openID == "" {
		return errors.New("account open id is required")
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE accounts
         SET access_token = ?, refresh_token = ?, expires_at = ?, refresh_expires_at = ?, updated_at = ?
         WHERE open_id = ?`,
		accessToken,
		nullableString(refreshToken),
		nullableTime(&expiresAt),
		nullableTime(&refreshExpiresAt),
		time.Now().UTC().Format(time.RFC3339Nano),
		openID,
	)
	if err != nil {
		return fmt.Errorf("update account tokens: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account %s: %w", openID, ErrAccountNotFound)
	}
	return nil
}

// GetAccount fetches a connected account by open id. Missing accounts return (nil, nil).
func (s *Store) GetAccount(ctx context.Context, openID string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE open_id = ?`, openID)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// ListAccounts returns all connected accounts ordered by display name.
func (s *Store) ListAccounts(ctx context.Context) ([]*Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY display_name, open_id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// RemoveAccount deletes a connected account by open id.
func (s *Store) RemoveAccount(ctx context.Context, openID string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM accounts WHERE open_id = ?`, openID)
	if err != nil {
		return false, fmt.Errorf("delete account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
