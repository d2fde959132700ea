package tiktok

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

const (
	userInfoPath = "/v2/user/info/"

	// The endpoint rejects requests that omit the fields parameter.
	userInfoFields = "open_id,union_id,avatar_url,display_name"
)

// User describes the TikTok account fields fetched after linking.
type User struct {
	OpenID      string `json:"open_id"`
	UnionID     string `json:"union_id"`
	AvatarURL   string `json:"avatar_url"`
	DisplayName string `json:"display_name"`
}

// UserInfo fetches profile fields for the token's account.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*User, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, errors.New("tiktok user info: access token required")
	}

	query := url.Values{}
	query.Set("fields", userInfoFields)

	var payload struct {
		Data struct {
			User User `json:"user"`
		} `json:"data"`
		Error *APIError `json:"error"`
	}
	if err := c.getJSON(ctx, userInfoPath, accessToken, query, &payload); err != nil {
		return nil, err
	}
	if !payload.Error.success() {
		return nil, payload.Error
	}
	if payload.Data.User.OpenID == "" {
		return nil, errors.New("tiktok user info: missing open_id in response")
	}
	user := payload.Data.User
	return &user, nil
}
