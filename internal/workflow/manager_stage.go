package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelpress/internal/fetch"
	"reelpress/internal/logging"
	"reelpress/internal/queue"
	"reelpress/internal/services"
)

// processJob carries one claimed job through every configured stage and into
// a terminal state. The claim already moved the job to downloading.
func (m *Manager) processJob(ctx context.Context, job *queue.Job) error {
	jobStart := time.Now()
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, m.logger)

	defer func() {
		if err := fetch.CleanupStaging(m.cfg, job.ID); err != nil {
			logger.Warn("failed to remove job staging directory", logging.Error(err))
		}
	}()

	logger.Info("job claimed",
		logging.String("source_kind", job.SourceKind),
		logging.Bool("publish_requested", job.PublishRequested),
		logging.Int("account_count", len(job.AccountIDs)),
	)

	for _, stg := range m.stages {
		if err := m.runStage(ctx, stg, job); err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Debug("job interrupted by shutdown", logging.String(logging.FieldStage, stg.name))
				return err
			}
			m.handleStageFailure(ctx, stg.name, job, err)
			return err
		}
	}

	if err := m.store.MarkCompleted(ctx, job.ID); err != nil {
		err = fmt.Errorf("mark completed: %w", err)
		m.handleStageFailure(ctx, "finalize", job, err)
		return err
	}
	job.Status = queue.StatusCompleted
	job.Progress = 100
	job.ErrorMessage = ""
	m.setLastJob(job)

	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Bool("degraded", job.Degraded),
		logging.Duration("job_duration", time.Since(jobStart)),
	)
	m.notifyJobCompleted(ctx, job)
	return nil
}

func (m *Manager) runStage(ctx context.Context, stg pipelineStage, job *queue.Job) error {
	ctx = services.WithStage(ctx, stg.name)
	logger := logging.WithContext(ctx, m.logger)
	if m.cfg != nil {
		if override := componentOverrideLevel(m.cfg.Logging.ComponentOverrides, stg.name); override != "" {
			logger = logging.WithLevelOverride(logger, logging.ParseLevel(override))
		}
	}

	if job.Status != stg.status {
		if err := m.store.Transition(ctx, job.ID, stg.status); err != nil {
			return fmt.Errorf("enter %s: %w", stg.status, err)
		}
		job.Status = stg.status
	}

	if stg.gated {
		release, err := m.acquireTranscodeSlot(ctx, logger)
		if err != nil {
			return err
		}
		defer release()
	}

	stageStart := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("status", string(stg.status)),
	)

	if err := stg.handler.Prepare(ctx, job); err != nil {
		return err
	}
	if err := m.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}
	if err := stg.handler.Execute(ctx, job); err != nil {
		return err
	}
	if err := m.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}

	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldProgressStage, strings.TrimSpace(job.ProgressStage)),
		logging.String(logging.FieldProgressMessage, strings.TrimSpace(job.ProgressMessage)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastJob(job)
	return nil
}

// componentOverrideLevel resolves the configured per-component log level for
// a stage. Keys are matched case-insensitively; an empty result means no
// override applies.
func componentOverrideLevel(overrides map[string]string, component string) string {
	if len(overrides) == 0 {
		return ""
	}
	component = strings.ToLower(strings.TrimSpace(component))
	if component == "" {
		return ""
	}
	for key, value := range overrides {
		if strings.ToLower(strings.TrimSpace(key)) == component {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// acquireTranscodeSlot blocks until an FFmpeg slot frees up. The returned
// release func must be called exactly once.
func (m *Manager) acquireTranscodeSlot(ctx context.Context, logger *slog.Logger) (func(), error) {
	select {
	case m.transcodeSlots <- struct{}{}:
	default:
		logger.Debug("waiting for transcode slot", logging.Int("slots", cap(m.transcodeSlots)))
		select {
		case m.transcodeSlots <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return func() { <-m.transcodeSlots }, nil
}
