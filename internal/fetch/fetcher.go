package fetch

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"reelpress/internal/config"
	"reelpress/internal/logging"
	"reelpress/internal/queue"
	"reelpress/internal/services"
	"reelpress/internal/stage"
)

// Fetcher stages a job's source video. Pipeline stage "downloading".
type Fetcher struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	client *http.Client
}

// NewFetcher constructs the fetch stage handler using a default HTTP client.
// Request deadlines come from the per-download context, not the client.
func NewFetcher(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Fetcher {
	return NewFetcherWithClient(cfg, store, logger, &http.Client{})
}

// NewFetcherWithClient allows injecting the HTTP client (used in tests).
func NewFetcherWithClient(cfg *config.Config, store *queue.Store, logger *slog.Logger, client *http.Client) *Fetcher {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "fetch"))
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{store: store, cfg: cfg, logger: stageLogger, client: client}
}

// StagingDir returns the staging directory for one job.
func StagingDir(cfg *config.Config, jobID string) string {
	return filepath.Join(cfg.Paths.StagingDir, jobID)
}

// CleanupStaging removes a job's staging directory. Callers treat failure as
// log-worthy, never fatal.
func CleanupStaging(cfg *config.Config, jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return nil
	}
	return os.RemoveAll(StagingDir(cfg, jobID))
}

func (f *Fetcher) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, f.logger)
	if job.ProgressStage == "" {
		job.ProgressStage = "Downloading"
	}
	job.ProgressMessage = "Fetching source video"
	if err := os.MkdirAll(StagingDir(f.cfg, job.ID), 0o755); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"fetch",
			"ensure staging dir",
			"Failed to create job staging directory; set paths.staging_dir to a writable location",
			err,
		)
	}
	logger.Info(
		"starting source fetch",
		logging.String("source_kind", job.SourceKind),
		logging.String("source_url", strings.TrimSpace(job.SourceURL)),
	)
	return nil
}

func (f *Fetcher) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, f.logger)

	var (
		path string
		size int64
	)
	switch job.SourceKind {
	case queue.SourceKindURL:
		downloaded, written, err := f.downloadSource(ctx, job)
		if err != nil {
			return err
		}
		path, size = downloaded, written
	case queue.SourceKindBase64:
		// Decoded into staging at submission time; revalidate it survived.
		path = job.SourceFile
		if err := stage.RequireFile("fetch", path, f.cfg.Fetch.MinSourceBytes); err != nil {
			return err
		}
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
	default:
		return services.Wrap(
			services.ErrValidation, "fetch", "resolve source",
			fmt.Sprintf("Unknown source kind %q", job.SourceKind), nil)
	}

	contentType, err := ValidateVideoFile(path)
	if err != nil {
		return err
	}

	job.SourceFile = path
	job.SetProgress("Downloading", "Source video staged", 100)
	logger.Info(
		"source fetch finished",
		logging.String("source_file", path),
		logging.Int64("source_bytes", size),
		logging.String("content_type", contentType),
	)
	return nil
}

// HealthCheck verifies the staging directory exists and is writable.
func (f *Fetcher) HealthCheck(ctx context.Context) stage.Health {
	const name = "fetch"
	if f.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	root := strings.TrimSpace(f.cfg.Paths.StagingDir)
	if root == "" {
		return stage.Unhealthy(name, "staging directory not configured")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("staging directory not writable: %v", err))
	}
	return stage.Healthy(name)
}
