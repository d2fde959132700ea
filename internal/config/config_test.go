package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reelpress/internal/config"
)

func TestLoadDefaultConfigUsesEnvAPIKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("REELPRESS_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "reelpress", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, ".local", "share", "reelpress") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.API.Bind != "127.0.0.1:7470" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	if cfg.API.Key != "test-key" {
		t.Fatalf("expected API key from env, got %q", cfg.API.Key)
	}
	if cfg.API.PublicBaseURL != "http://127.0.0.1:7470" {
		t.Fatalf("unexpected public base url: %q", cfg.API.PublicBaseURL)
	}
	if cfg.Workflow.Workers != 2 {
		t.Fatalf("unexpected workers: %d", cfg.Workflow.Workers)
	}
	if cfg.Workflow.TranscodeSlots != 1 {
		t.Fatalf("unexpected transcode slots: %d", cfg.Workflow.TranscodeSlots)
	}
	if cfg.Fetch.MaxDownloadBytes != 2<<30 {
		t.Fatalf("unexpected max download bytes: %d", cfg.Fetch.MaxDownloadBytes)
	}
	if cfg.Transcode.CRF != 23 || cfg.Transcode.Preset != "veryfast" {
		t.Fatalf("unexpected transcode defaults: crf=%d preset=%q", cfg.Transcode.CRF, cfg.Transcode.Preset)
	}
	if cfg.Transcode.Fallback != "remux" {
		t.Fatalf("unexpected fallback: %q", cfg.Transcode.Fallback)
	}
	if !cfg.Transcode.Jitter {
		t.Fatal("expected jitter enabled by default")
	}
	if cfg.Storage.Backend != config.StorageBackendLocal {
		t.Fatalf("unexpected storage backend: %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Bucket != "outputs" {
		t.Fatalf("unexpected bucket: %q", cfg.Storage.Bucket)
	}
	if cfg.TikTok.Enabled {
		t.Fatal("expected TikTok disabled by default")
	}
	if len(cfg.TikTok.Scopes) == 0 || cfg.TikTok.Scopes[0] != "user.info.basic" {
		t.Fatalf("unexpected TikTok scopes: %v", cfg.TikTok.Scopes)
	}
	if cfg.Notifications.WebhookURL != "" {
		t.Fatalf("expected webhook disabled by default, got %q", cfg.Notifications.WebhookURL)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: format=%q level=%q", cfg.Logging.Format, cfg.Logging.Level)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadMissingAPIKeyFails(t *testing.T) {
	t.Setenv("REELPRESS_API_KEY", "")
	t.Setenv("HOME", t.TempDir())

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error when api key is unset")
	}
	if !strings.Contains(err.Error(), "api.key") {
		t.Fatalf("expected api.key in error, got %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "reelpress.toml")

	type payload struct {
		API struct {
			Key  string `toml:"key"`
			Bind string `toml:"bind"`
		} `toml:"api"`
		Workflow struct {
			Workers        int `toml:"workers"`
			TranscodeSlots int `toml:"transcode_slots"`
		} `toml:"workflow"`
		Transcode struct {
			Preset   string `toml:"preset"`
			Fallback string `toml:"fallback"`
		} `toml:"transcode"`
	}
	custom := payload{}
	custom.API.Key = "abc123"
	custom.API.Bind = "0.0.0.0:9000"
	custom.Workflow.Workers = 4
	custom.Workflow.TranscodeSlots = 2
	custom.Transcode.Preset = "Medium"
	custom.Transcode.Fallback = "Copy"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("REELPRESS_API_KEY", "")
	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.API.Key != "abc123" {
		t.Fatalf("expected API key from file, got %q", cfg.API.Key)
	}
	if cfg.API.Bind != "0.0.0.0:9000" {
		t.Fatalf("unexpected bind: %q", cfg.API.Bind)
	}
	if cfg.Workflow.Workers != 4 {
		t.Fatalf("expected workers 4, got %d", cfg.Workflow.Workers)
	}
	if cfg.Workflow.TranscodeSlots != 2 {
		t.Fatalf("expected transcode slots 2, got %d", cfg.Workflow.TranscodeSlots)
	}
	if cfg.Transcode.Preset != "medium" {
		t.Fatalf("expected preset lowercased, got %q", cfg.Transcode.Preset)
	}
	if cfg.Transcode.Fallback != "copy" {
		t.Fatalf("expected fallback lowercased, got %q", cfg.Transcode.Fallback)
	}
}

func TestEnvVarOverridesConfigFileForSecrets(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "reelpress.toml")

	type payload struct {
		API struct {
			Key string `toml:"key"`
		} `toml:"api"`
		Storage struct {
			Backend   string `toml:"backend"`
			Endpoint  string `toml:"endpoint"`
			AccessKey string `toml:"access_key"`
			SecretKey string `toml:"secret_key"`
		} `toml:"storage"`
		TikTok struct {
			Enabled      bool   `toml:"enabled"`
			ClientKey    string `toml:"client_key"`
			ClientSecret string `toml:"client_secret"`
			RedirectURI  string `toml:"redirect_uri"`
		} `toml:"tiktok"`
	}
	custom := payload{}
	custom.API.Key = "file-api"
	custom.Storage.Backend = "s3"
	custom.Storage.Endpoint = "s3.example.com"
	custom.Storage.AccessKey = "file-access"
	custom.Storage.SecretKey = "file-secret"
	custom.TikTok.Enabled = true
	custom.TikTok.ClientKey = "file-client"
	custom.TikTok.ClientSecret = "file-client-secret"
	custom.TikTok.RedirectURI = "https://example.com/callback"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("REELPRESS_API_KEY", "env-api")
	t.Setenv("REELPRESS_S3_ACCESS_KEY", "env-access")
	t.Setenv("REELPRESS_S3_SECRET_KEY", "env-secret")
	t.Setenv("REELPRESS_TIKTOK_CLIENT_KEY", "env-client")
	t.Setenv("REELPRESS_TIKTOK_CLIENT_SECRET", "env-client-secret")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.API.Key != "env-api" {
		t.Errorf("expected API key from env, got %q", cfg.API.Key)
	}
	if cfg.Storage.AccessKey != "env-access" {
		t.Errorf("expected access key from env, got %q", cfg.Storage.AccessKey)
	}
	if cfg.Storage.SecretKey != "env-secret" {
		t.Errorf("expected secret key from env, got %q", cfg.Storage.SecretKey)
	}
	if cfg.TikTok.ClientKey != "env-client" {
		t.Errorf("expected TikTok client key from env, got %q", cfg.TikTok.ClientKey)
	}
	if cfg.TikTok.ClientSecret != "env-client-secret" {
		t.Errorf("expected TikTok client secret from env, got %q", cfg.TikTok.ClientSecret)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_api_key_here") {
		t.Fatalf("sample config missing placeholder API key: %s", contents)
	}

	// Validate it decodes
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}

	// On Windows join uses backslashes; skip path expectation specifics when running there to avoid
	// differences in drive letters during CI.
	if runtime.GOOS != "windows" {
		if !strings.Contains(cfg.Paths.StagingDir, "reelpress") {
			t.Fatalf("expected staging dir to contain reelpress, got %q", cfg.Paths.StagingDir)
		}
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	base := config.Default()
	base.API.Key = "test-key"

	cases := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantSub string
	}{
		{
			name:    "zero workers",
			mutate:  func(cfg *config.Config) { cfg.Workflow.Workers = 0 },
			wantSub: "workflow.workers",
		},
		{
			name:    "zero transcode slots",
			mutate:  func(cfg *config.Config) { cfg.Workflow.TranscodeSlots = 0 },
			wantSub: "workflow.transcode_slots",
		},
		{
			name:    "crf out of range",
			mutate:  func(cfg *config.Config) { cfg.Transcode.CRF = 99 },
			wantSub: "transcode.crf",
		},
		{
			name:    "unknown preset",
			mutate:  func(cfg *config.Config) { cfg.Transcode.Preset = "warpspeed" },
			wantSub: "transcode.preset",
		},
		{
			name:    "unknown fallback",
			mutate:  func(cfg *config.Config) { cfg.Transcode.Fallback = "skip" },
			wantSub: "transcode.fallback",
		},
		{
			name:    "unknown audio policy",
			mutate:  func(cfg *config.Config) { cfg.Transcode.AudioPolicy = "flac" },
			wantSub: "transcode.audio_policy",
		},
		{
			name:    "unknown storage backend",
			mutate:  func(cfg *config.Config) { cfg.Storage.Backend = "ftp" },
			wantSub: "storage.backend",
		},
		{
			name: "s3 without credentials",
			mutate: func(cfg *config.Config) {
				cfg.Storage.Backend = config.StorageBackendS3
				cfg.Storage.Endpoint = "s3.example.com"
			},
			wantSub: "storage.access_key",
		},
		{
			name:    "tiktok enabled without client key",
			mutate:  func(cfg *config.Config) { cfg.TikTok.Enabled = true },
			wantSub: "tiktok.client_key",
		},
		{
			name:    "max download not above min source",
			mutate:  func(cfg *config.Config) { cfg.Fetch.MaxDownloadBytes = 1024 },
			wantSub: "fetch.max_download_bytes",
		},
		{
			name:    "webhook scheme",
			mutate:  func(cfg *config.Config) { cfg.Notifications.WebhookURL = "ftp://hooks.example.com" },
			wantSub: "notifications.webhook_url",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("expected error to mention %q, got %v", tc.wantSub, err)
			}
		})
	}
}
