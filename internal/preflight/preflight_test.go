package preflight_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"reelpress/internal/preflight"
	"reelpress/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()

	if res := preflight.CheckDirectoryAccess("Staging directory", dir); !res.Passed {
		t.Fatalf("expected pass for %s, got detail %q", dir, res.Detail)
	}

	missing := filepath.Join(dir, "missing")
	if res := preflight.CheckDirectoryAccess("Staging directory", missing); res.Passed {
		t.Fatal("expected failure for missing directory")
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if res := preflight.CheckDirectoryAccess("Staging directory", file); res.Passed {
		t.Fatal("expected failure for non-directory path")
	}
}

func TestCheckStorageLocalCreatesOutputDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	res := preflight.CheckStorage(context.Background(), cfg)
	if !res.Passed {
		t.Fatalf("expected local storage to be ready, got %q", res.Detail)
	}
	if _, err := os.Stat(cfg.Storage.LocalDir); err != nil {
		t.Fatalf("expected output directory to exist: %v", err)
	}
}

func TestCheckTikTokConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	cfg.TikTok.Enabled = false
	if res := preflight.CheckTikTokConfig(cfg); !res.Passed {
		t.Fatalf("disabled publishing should pass, got %q", res.Detail)
	}

	cfg.TikTok.Enabled = true
	cfg.TikTok.ClientKey = ""
	cfg.TikTok.ClientSecret = "secret"
	cfg.TikTok.RedirectURI = "https://example.test/auth/tiktok/callback"
	res := preflight.CheckTikTokConfig(cfg)
	if res.Passed {
		t.Fatal("expected failure when client key missing")
	}

	cfg.TikTok.ClientKey = "key"
	if res := preflight.CheckTikTokConfig(cfg); !res.Passed {
		t.Fatalf("expected pass with full credentials, got %q", res.Detail)
	}
}

func TestRunAllReportsFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	cfg.TikTok.Enabled = true

	results := preflight.RunAll(context.Background(), cfg)
	failed := preflight.FailedDetails(results)
	if len(failed) != 1 {
		t.Fatalf("expected only the TikTok check to fail, got %v", failed)
	}
}
