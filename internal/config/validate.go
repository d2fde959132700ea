package config

import (
	"errors"
	"fmt"
	"strings"
)

var x264Presets = map[string]struct{}{
	"ultrafast": {},
	"superfast": {},
	"veryfast":  {},
	"faster":    {},
	"fast":      {},
	"medium":    {},
	"slow":      {},
	"slower":    {},
	"veryslow":  {},
	"placebo":   {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateTikTok(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.Key == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/reelpress/config.toml"
		}
		return fmt.Errorf("api.key is required. Set REELPRESS_API_KEY env var or edit %s (create with 'reelpress config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.workers":             c.Workflow.Workers,
		"workflow.transcode_slots":     c.Workflow.TranscodeSlots,
		"workflow.queue_poll_interval": c.Workflow.QueuePollInterval,
	})
}

func (c *Config) validateFetch() error {
	if c.Fetch.DownloadTimeout <= 0 {
		return errors.New("fetch.download_timeout must be positive (seconds)")
	}
	if c.Fetch.MaxDownloadBytes <= 0 {
		return errors.New("fetch.max_download_bytes must be positive")
	}
	if c.Fetch.MinSourceBytes < 0 {
		return errors.New("fetch.min_source_bytes must be >= 0")
	}
	if c.Fetch.MaxDownloadBytes <= c.Fetch.MinSourceBytes {
		return errors.New("fetch.max_download_bytes must be greater than fetch.min_source_bytes")
	}
	return nil
}

func (c *Config) validateTranscode() error {
	if c.Transcode.CRF < 0 || c.Transcode.CRF > 51 {
		return errors.New("transcode.crf must be between 0 and 51")
	}
	if _, ok := x264Presets[c.Transcode.Preset]; !ok {
		return fmt.Errorf("transcode.preset %q is not a valid x264 preset", c.Transcode.Preset)
	}
	switch c.Transcode.AudioPolicy {
	case "aac", "copy":
	default:
		return fmt.Errorf("transcode.audio_policy must be \"aac\" or \"copy\", got %q", c.Transcode.AudioPolicy)
	}
	switch c.Transcode.Fallback {
	case "remux", "copy", "none":
	default:
		return fmt.Errorf("transcode.fallback must be \"remux\", \"copy\", or \"none\", got %q", c.Transcode.Fallback)
	}
	if c.Transcode.Timeout <= 0 {
		return errors.New("transcode.timeout must be positive (seconds)")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageBackendLocal:
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			return errors.New("storage.local_dir must be set when storage.backend is \"local\"")
		}
	case StorageBackendS3:
		if strings.TrimSpace(c.Storage.Endpoint) == "" {
			return errors.New("storage.endpoint must be set when storage.backend is \"s3\"")
		}
		if strings.TrimSpace(c.Storage.AccessKey) == "" {
			return errors.New("storage.access_key must be set when storage.backend is \"s3\" (or set REELPRESS_S3_ACCESS_KEY)")
		}
		if strings.TrimSpace(c.Storage.SecretKey) == "" {
			return errors.New("storage.secret_key must be set when storage.backend is \"s3\" (or set REELPRESS_S3_SECRET_KEY)")
		}
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			return errors.New("storage.bucket must be set when storage.backend is \"s3\"")
		}
	default:
		return fmt.Errorf("storage.backend must be \"local\" or \"s3\", got %q", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateTikTok() error {
	if !c.TikTok.Enabled {
		return nil
	}
	if c.TikTok.ClientKey == "" {
		return errors.New("tiktok.client_key must be set when tiktok.enabled is true (or set REELPRESS_TIKTOK_CLIENT_KEY)")
	}
	if c.TikTok.ClientSecret == "" {
		return errors.New("tiktok.client_secret must be set when tiktok.enabled is true (or set REELPRESS_TIKTOK_CLIENT_SECRET)")
	}
	if c.TikTok.RedirectURI == "" {
		return errors.New("tiktok.redirect_uri must be set when tiktok.enabled is true")
	}
	if len(c.TikTok.Scopes) == 0 {
		return errors.New("tiktok.scopes must include at least one scope when tiktok.enabled is true")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.WebhookURL == "" {
		return nil
	}
	if !strings.HasPrefix(c.Notifications.WebhookURL, "http://") && !strings.HasPrefix(c.Notifications.WebhookURL, "https://") {
		return fmt.Errorf("notifications.webhook_url must be an http or https URL, got %q", c.Notifications.WebhookURL)
	}
	return ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"notifications.max_attempts":    c.Notifications.MaxAttempts,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
