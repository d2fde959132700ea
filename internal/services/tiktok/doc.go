// Package tiktok provides the TikTok open API client used for account
// linking and pull-from-URL publishing.
//
// This package is used by:
//   - HTTP API: build authorize redirects, exchange OAuth callback codes,
//     fetch account profiles after linking
//   - Social publish stage: refresh stored tokens and submit publish-init
//     requests for finished artifacts
//
// # Endpoints
//
// Authorization redirects go to www.tiktok.com; everything else talks to
// open.tiktokapis.com. Token grants post form-encoded bodies to
// /v2/oauth/token/ and report failures through a flat error and
// error_description pair. The user info and publish endpoints wrap their
// payloads in data/error envelopes where any code other than "ok" is a
// failure, and user info requires an explicit fields query parameter.
//
// # Entry Points
//
// NewClient: construct a client from the tiktok config section.
// Client.AuthorizeURL: authorize redirect carrying CSRF state.
// Client.ExchangeCode, Client.RefreshToken: token grants.
// Client.UserInfo: profile fields for a linked account.
// Client.PublishFromURL: submit a pull-from-URL publish and return the
// platform publish id.
// TokenManager.FreshAccessToken: hand out an access token, refreshing and
// persisting the bundle when it expires inside the configured margin.
//
// # Token Lifecycle
//
// Access tokens live about a day and refresh tokens about a year. The token
// manager refreshes any bundle expiring inside tiktok.token_refresh_margin
// and persists the rotated pair through the account store. A missing or
// rejected refresh token surfaces ErrReauthorizationRequired, which callers
// record against that single account instead of failing the job.
package tiktok
