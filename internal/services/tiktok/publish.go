package tiktok

import (
	"context"
	"errors"
	"strings"
)

const (
	publishInitPath = "/v2/post/publish/inbox/video/init/"

	publishSourcePullFromURL = "PULL_FROM_URL"
)

type publishSourceInfo struct {
	Source   string `json:"source"`
	VideoURL string `json:"video_url"`
}

type publishPostInfo struct {
	Title string `json:"title"`
}

type publishInitRequest struct {
	SourceInfo publishSourceInfo `json:"source_info"`
	PostInfo   publishPostInfo   `json:"post_info"`
}

// PublishFromURL asks TikTok to pull the artifact at videoURL into the
// account's inbox and returns the platform publish id. The artifact URL
// must be publicly reachable for the platform's fetcher.
func (c *Client) PublishFromURL(ctx context.Context, accessToken, videoURL, title string) (string, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return "", errors.New("tiktok publish: access token required")
	}
	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return "", errors.New("tiktok publish: video url required")
	}

	request := publishInitRequest{
		SourceInfo: publishSourceInfo{
			Source:   publishSourcePullFromURL,
			VideoURL: videoURL,
		},
		PostInfo: publishPostInfo{
			Title: strings.TrimSpace(title),
		},
	}

	var payload struct {
		Data struct {
			PublishID string `json:"publish_id"`
		} `json:"data"`
		Error *APIError `json:"error"`
	}
	if err := c.postJSON(ctx, publishInitPath, accessToken, request, &payload); err != nil {
		return "", err
	}
	if !payload.Error.success() {
		return "", payload.Error
	}
	if payload.Data.PublishID == "" {
		return "", errors.New("tiktok publish: missing publish_id in response")
	}
	return payload.Data.PublishID, nil
}
