package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"reelpress/internal/config"
	"reelpress/internal/fileutil"
	"reelpress/internal/logging"
	"reelpress/internal/services"
)

// Local copies artifacts into a directory the daemon serves under /files.
// Development backend; the URL shape matches the s3 backend so clients never
// care which one is active.
type Local struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewLocal(cfg *config.Config, logger *slog.Logger) *Local {
	backendLogger := logger
	if backendLogger != nil {
		backendLogger = backendLogger.With(logging.String(logging.FieldComponent, "storage"))
	}
	return &Local{cfg: cfg, logger: backendLogger}
}

func (l *Local) EnsureReady(ctx context.Context) error {
	dir := strings.TrimSpace(l.cfg.Storage.LocalDir)
	if dir == "" {
		return services.Wrap(
			services.ErrConfiguration,
			"storage",
			"check output dir",
			"storage.local_dir is required for the local backend",
			nil,
		)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"storage",
			"check output dir",
			fmt.Sprintf("Failed to create output directory %q", dir),
			err,
		)
	}
	return nil
}

func (l *Local) Upload(ctx context.Context, localPath, key, contentType string) (string, error) {
	dst := filepath.Join(strings.TrimSpace(l.cfg.Storage.LocalDir), filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", services.Wrap(
			services.ErrConfiguration,
			"storage",
			"prepare object dir",
			fmt.Sprintf("Failed to create directory for %q", key),
			err,
		)
	}
	if err := fileutil.CopyFileVerified(localPath, dst); err != nil {
		return "", services.Wrap(
			services.ErrTransient,
			"storage",
			"copy object",
			fmt.Sprintf("Failed to copy artifact into the output directory as %q", key),
			err,
		)
	}
	if l.logger != nil {
		l.logger.Info(
			"stored artifact locally",
			logging.String("storage_key", key),
			logging.String("path", dst),
		)
	}
	return l.PublicURL(key), nil
}

func (l *Local) PublicURL(key string) string {
	base := strings.TrimRight(strings.TrimSpace(l.cfg.API.PublicBaseURL), "/")
	if base == "" {
		base = "http://" + strings.TrimSpace(l.cfg.API.Bind)
	}
	return fmt.Sprintf("%s/files/%s", base, key)
}

var _ Service = (*Local)(nil)
