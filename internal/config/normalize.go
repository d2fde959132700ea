package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeAPI(); err != nil {
		return err
	}
	c.normalizeFetch()
	c.normalizeTranscode()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeTikTok()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() error {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Key = strings.TrimSpace(c.API.Key)
	if value, ok := os.LookupEnv("REELPRESS_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.API.Key = strings.TrimSpace(value)
	}
	c.API.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.API.PublicBaseURL), "/")
	if c.API.PublicBaseURL == "" {
		c.API.PublicBaseURL = "http://" + c.API.Bind
	}
	return nil
}

func (c *Config) normalizeFetch() {
	if c.Fetch.DownloadTimeout <= 0 {
		c.Fetch.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Fetch.MaxDownloadBytes <= 0 {
		c.Fetch.MaxDownloadBytes = defaultMaxDownloadBytes
	}
	if c.Fetch.MinSourceBytes < 0 {
		c.Fetch.MinSourceBytes = defaultMinSourceBytes
	}
}

func (c *Config) normalizeTranscode() {
	c.Transcode.Preset = strings.ToLower(strings.TrimSpace(c.Transcode.Preset))
	if c.Transcode.Preset == "" {
		c.Transcode.Preset = defaultPreset
	}
	c.Transcode.AudioPolicy = strings.ToLower(strings.TrimSpace(c.Transcode.AudioPolicy))
	if c.Transcode.AudioPolicy == "" {
		c.Transcode.AudioPolicy = defaultAudioPolicy
	}
	c.Transcode.Fallback = strings.ToLower(strings.TrimSpace(c.Transcode.Fallback))
	if c.Transcode.Fallback == "" {
		c.Transcode.Fallback = defaultFallback
	}
	if c.Transcode.Timeout <= 0 {
		c.Transcode.Timeout = defaultTranscodeTimeout
	}
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageBackendLocal
	}
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = defaultStorageBucket
	}
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	c.Storage.Region = strings.TrimSpace(c.Storage.Region)
	c.Storage.AccessKey = strings.TrimSpace(c.Storage.AccessKey)
	if value, ok := os.LookupEnv("REELPRESS_S3_ACCESS_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Storage.AccessKey = strings.TrimSpace(value)
	}
	c.Storage.SecretKey = strings.TrimSpace(c.Storage.SecretKey)
	if value, ok := os.LookupEnv("REELPRESS_S3_SECRET_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Storage.SecretKey = strings.TrimSpace(value)
	}
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	var err error
	if strings.TrimSpace(c.Storage.LocalDir) == "" {
		c.Storage.LocalDir = defaultLocalOutputDir
	}
	if c.Storage.LocalDir, err = expandPath(c.Storage.LocalDir); err != nil {
		return fmt.Errorf("storage.local_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTikTok() {
	c.TikTok.ClientKey = strings.TrimSpace(c.TikTok.ClientKey)
	if value, ok := os.LookupEnv("REELPRESS_TIKTOK_CLIENT_KEY"); ok && strings.TrimSpace(value) != "" {
		c.TikTok.ClientKey = strings.TrimSpace(value)
	}
	c.TikTok.ClientSecret = strings.TrimSpace(c.TikTok.ClientSecret)
	if value, ok := os.LookupEnv("REELPRESS_TIKTOK_CLIENT_SECRET"); ok && strings.TrimSpace(value) != "" {
		c.TikTok.ClientSecret = strings.TrimSpace(value)
	}
	c.TikTok.RedirectURI = strings.TrimSpace(c.TikTok.RedirectURI)
	if len(c.TikTok.Scopes) == 0 {
		c.TikTok.Scopes = defaultTikTokScopes()
	} else {
		scopes := make([]string, 0, len(c.TikTok.Scopes))
		seen := make(map[string]struct{}, len(c.TikTok.Scopes))
		for _, scope := range c.TikTok.Scopes {
			normalized := strings.ToLower(strings.TrimSpace(scope))
			if normalized == "" {
				continue
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			scopes = append(scopes, normalized)
		}
		if len(scopes) == 0 {
			scopes = defaultTikTokScopes()
		}
		c.TikTok.Scopes = scopes
	}
	if c.TikTok.RequestTimeout <= 0 {
		c.TikTok.RequestTimeout = defaultTikTokTimeout
	}
	if c.TikTok.TokenRefreshMargin <= 0 {
		c.TikTok.TokenRefreshMargin = defaultTokenRefreshMargin
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.WebhookURL = strings.TrimSpace(c.Notifications.WebhookURL)
	if value, ok := os.LookupEnv("REELPRESS_WEBHOOK_URL"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.WebhookURL = strings.TrimSpace(value)
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	if c.Notifications.MaxAttempts <= 0 {
		c.Notifications.MaxAttempts = defaultNotifyMaxAttempts
	}
	if c.Notifications.RetryBackoff < 0 {
		c.Notifications.RetryBackoff = defaultNotifyRetryBackoff
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if len(c.Logging.ComponentOverrides) > 0 {
		overrides := make(map[string]string, len(c.Logging.ComponentOverrides))
		for component, level := range c.Logging.ComponentOverrides {
			component = strings.ToLower(strings.TrimSpace(component))
			level = strings.ToLower(strings.TrimSpace(level))
			if component == "" || level == "" {
				continue
			}
			overrides[component] = level
		}
		c.Logging.ComponentOverrides = overrides
	}
}
