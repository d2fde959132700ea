package upload

import (
	"context"
	"strings"
	"time"

	"log/slog"

	"github.com/gabriel-vasile/mimetype"

	"reelpress/internal/config"
	"reelpress/internal/logging"
	"reelpress/internal/queue"
	"reelpress/internal/services"
	"reelpress/internal/stage"
	"reelpress/internal/storage"
	"reelpress/internal/textutil"
)

// Uploader publishes encoded artifacts to storage. Pipeline stage
// "uploading".
type Uploader struct {
	store   *queue.Store
	cfg     *config.Config
	logger  *slog.Logger
	service storage.Service
}

// NewUploader constructs the upload stage with the configured storage
// backend.
func NewUploader(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Uploader, error) {
	service, err := storage.NewService(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewUploaderWithService(cfg, store, logger, service), nil
}

// NewUploaderWithService allows injecting the storage backend (used in
// tests).
func NewUploaderWithService(cfg *config.Config, store *queue.Store, logger *slog.Logger, service storage.Service) *Uploader {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "upload"))
	}
	return &Uploader{store: store, cfg: cfg, logger: stageLogger, service: service}
}

func (u *Uploader) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, u.logger)
	job.SetProgress("Uploading", "Publishing encoded output", 0)
	if err := u.service.EnsureReady(ctx); err != nil {
		return err
	}
	logger.Debug("storage backend ready")
	return nil
}

func (u *Uploader) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, u.logger)
	stageStart := time.Now()

	if err := stage.RequireFile("upload", job.EncodedFile, 1); err != nil {
		return err
	}

	filename := publicFileName(job)
	key := storage.ObjectKey(job.ID, filename)
	contentType := "video/mp4"
	if mtype, err := mimetype.DetectFile(job.EncodedFile); err == nil {
		contentType = mtype.String()
	}

	url, err := u.service.Upload(ctx, job.EncodedFile, key, contentType)
	if err != nil {
		return err
	}

	outputs := []queue.OutputParams{{
		VideoURL:   url,
		StorageKey: key,
		Caption:    job.Caption,
		Hashtags:   job.Hashtags,
	}}
	if err := u.store.SetOutputs(ctx, job.ID, outputs); err != nil {
		return services.Wrap(
			services.ErrTransient,
			"upload",
			"record output",
			"Uploaded the artifact but failed to record the job output",
			err,
		)
	}

	job.SetProgress("Uploading", "Output uploaded", 100)
	logger.Info(
		"upload stage summary",
		logging.String("storage_key", key),
		logging.String("video_url", url),
		logging.String("content_type", contentType),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return nil
}

// HealthCheck verifies the storage backend accepts writes.
func (u *Uploader) HealthCheck(ctx context.Context) stage.Health {
	const name = "upload"
	if u.service == nil {
		return stage.Unhealthy(name, "storage backend unavailable")
	}
	if err := u.service.EnsureReady(ctx); err != nil {
		return stage.Unhealthy(name, err.Error())
	}
	return stage.Healthy(name)
}

// publicFileName derives the served filename from the caption so pulled
// URLs read like the post they belong to.
func publicFileName(job *queue.Job) string {
	stem := textutil.SanitizeToken(job.Caption)
	if stem == "unknown" {
		stem = "video"
	}
	const maxStem = 48
	if len(stem) > maxStem {
		stem = strings.Trim(stem[:maxStem], "_-")
	}
	return stem + ".mp4"
}
