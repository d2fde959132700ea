package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"reelpress/internal/config"
	"reelpress/internal/deps"
	"reelpress/internal/logging"
	"reelpress/internal/storage"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckStorage verifies the configured storage backend is usable: for S3 that
// the bucket is reachable with the configured credentials, for local that the
// output directory can be created.
func CheckStorage(ctx context.Context, cfg *config.Config) Result {
	name := "Storage"
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case config.StorageBackendS3:
		name = "Storage (S3)"
	case config.StorageBackendLocal, "":
		name = "Storage (local)"
	}

	svc, err := storage.NewService(cfg, logging.NewNop())
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := svc.EnsureReady(checkCtx); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "backend ready"}
}

// CheckTikTokConfig verifies publishing credentials are complete. It does not
// call the TikTok API; token validity surfaces per-account at publish time.
func CheckTikTokConfig(cfg *config.Config) Result {
	const name = "TikTok"

	if !cfg.TikTok.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	var missing []string
	if strings.TrimSpace(cfg.TikTok.ClientKey) == "" {
		missing = append(missing, "client_key")
	}
	if strings.TrimSpace(cfg.TikTok.ClientSecret) == "" {
		missing = append(missing, "client_secret")
	}
	if strings.TrimSpace(cfg.TikTok.RedirectURI) == "" {
		missing = append(missing, "redirect_uri")
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: "missing " + strings.Join(missing, ", ")}
	}
	return Result{Name: name, Passed: true, Detail: "credentials configured"}
}

// CheckSystemDeps evaluates all external binaries reelpress shells out to.
// Both the daemon and the CLI status command use this to avoid duplicating
// the requirements list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     deps.ResolveFFmpegPath(cfg.FFmpegBinary()),
			Description: "Required for transcoding",
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveFFprobePath(cfg.FFprobeBinary()),
			Description: "Required for media inspection",
		},
	}
	return deps.CheckBinaries(requirements)
}
