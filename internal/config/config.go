package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration shared by the daemon and CLI.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
}

// API contains the HTTP listener and authentication settings.
type API struct {
	Bind          string `toml:"bind"`
	Key           string `toml:"key"`
	PublicBaseURL string `toml:"public_base_url"`
}

// Workflow contains worker pool sizing and queue polling intervals.
type Workflow struct {
	Workers           int `toml:"workers"`
	TranscodeSlots    int `toml:"transcode_slots"`
	QueuePollInterval int `toml:"queue_poll_interval"`
}

// Fetch contains source download limits and timeouts.
type Fetch struct {
	DownloadTimeout  int   `toml:"download_timeout"`
	MaxDownloadBytes int64 `toml:"max_download_bytes"`
	MinSourceBytes   int64 `toml:"min_source_bytes"`
}

// Transcode contains encoder settings for the vertical render.
type Transcode struct {
	CRF         int    `toml:"crf"`
	Preset      string `toml:"preset"`
	AudioPolicy string `toml:"audio_policy"`
	Jitter      bool   `toml:"jitter"`
	Fallback    string `toml:"fallback"`
	Timeout     int    `toml:"timeout"`
}

// Storage contains object storage settings for encoded outputs.
type Storage struct {
	Backend       string `toml:"backend"`
	Bucket        string `toml:"bucket"`
	Endpoint      string `toml:"endpoint"`
	AccessKey     string `toml:"access_key"`
	SecretKey     string `toml:"secret_key"`
	UseSSL        bool   `toml:"use_ssl"`
	Region        string `toml:"region"`
	PublicBaseURL string `toml:"public_base_url"`
	LocalDir      string `toml:"local_dir"`
}

// TikTok contains OAuth and publish settings for the TikTok open API.
type TikTok struct {
	Enabled            bool     `toml:"enabled"`
	ClientKey          string   `toml:"client_key"`
	ClientSecret       string   `toml:"client_secret"`
	RedirectURI        string   `toml:"redirect_uri"`
	Scopes             []string `toml:"scopes"`
	RequestTimeout     int      `toml:"request_timeout"`
	TokenRefreshMargin int      `toml:"token_refresh_margin"`
}

// Notifications contains webhook delivery settings.
type Notifications struct {
	WebhookURL     string `toml:"webhook_url"`
	RequestTimeout int    `toml:"request_timeout"`
	MaxAttempts    int    `toml:"max_attempts"`
	RetryBackoff   int    `toml:"retry_backoff"`
	Completed      bool   `toml:"completed"`
	Failed         bool   `toml:"failed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format             string            `toml:"format"`
	Level              string            `toml:"level"`
	RetentionDays      int               `toml:"retention_days"`
	ComponentOverrides map[string]string `toml:"component_overrides"`
}

// Config encapsulates all configuration values for reelpress.
//
// Configuration sections by subsystem:
//   - Paths: staging, data, and log directories
//   - API: HTTP bind address, request key, and public base URL
//   - Workflow: worker pool sizing and queue polling
//   - Fetch: source download limits
//   - Transcode: FFmpeg encoder settings and fallback policy
//   - Storage: object storage backend for encoded outputs
//   - TikTok: OAuth credentials and publish settings
//   - Notifications: webhook delivery for terminal job states
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Workflow      Workflow      `toml:"workflow"`
	Fetch         Fetch         `toml:"fetch"`
	Transcode     Transcode     `toml:"transcode"`
	Storage       Storage       `toml:"storage"`
	TikTok        TikTok        `toml:"tiktok"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelpress/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory is applied
// to the environment first so secrets can live outside the TOML file.
func Load(path string) (*Config, string, bool, error) {
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/reelpress/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelpress.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The local storage directory is created on a best-effort basis so the daemon
// can run when external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Storage.Backend == StorageBackendLocal && strings.TrimSpace(c.Storage.LocalDir) != "" {
		// Best-effort to avoid failing config load when storage is offline.
		_ = os.MkdirAll(c.Storage.LocalDir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the FFmpeg executable name used for transcoding.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
