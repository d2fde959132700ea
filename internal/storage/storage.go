package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"log/slog"

	"reelpress/internal/config"
	"reelpress/internal/services"
)

// Service uploads local files under deterministic keys and resolves the
// public URL clients can pull from.
type Service interface {
	// EnsureReady verifies the backend is usable, creating the bucket or
	// output directory when missing. Called at daemon startup and from
	// health checks.
	EnsureReady(ctx context.Context) error
	// Upload stores the file under key and returns its public URL.
	// Re-uploading an existing key overwrites the object.
	Upload(ctx context.Context, localPath, key, contentType string) (string, error)
	// PublicURL resolves the URL for a key without touching the backend.
	PublicURL(key string) string
}

// ObjectKey builds the bucket key for one job artifact.
func ObjectKey(jobID, filename string) string {
	return path.Join("jobs", jobID, filename)
}

// NewService selects the backend from configuration.
func NewService(cfg *config.Config, logger *slog.Logger) (Service, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case config.StorageBackendS3:
		return NewS3(cfg, logger)
	case config.StorageBackendLocal, "":
		return NewLocal(cfg, logger), nil
	default:
		return nil, services.Wrap(
			services.ErrConfiguration,
			"storage",
			"select backend",
			fmt.Sprintf("Unknown storage backend %q; use %q or %q", cfg.Storage.Backend, config.StorageBackendS3, config.StorageBackendLocal),
			nil,
		)
	}
}
