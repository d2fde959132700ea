package workflow

import (
	"context"
	"errors"
	"strings"

	"reelpress/internal/logging"
	"reelpress/internal/queue"
)

// handleStageFailure moves the job to failed with an operator-facing message.
// MarkFailed is a no-op on jobs that already reached a terminal state, so a
// late failure can never clobber a completed result.
func (m *Manager) handleStageFailure(ctx context.Context, stageName string, job *queue.Job, stageErr error) {
	logger := logging.WithContext(ctx, m.logger)

	message := failureMessage(stageName, stageErr)
	logging.ErrorWithContext(logger, "stage failed", "stage_failure",
		logging.Error(stageErr),
		logging.Alert("stage_failure"),
		logging.String("error_message", message),
	)

	if err := m.store.MarkFailed(ctx, job.ID, message); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutdown interrupted failure persistence")
		} else {
			logger.Error("failed to persist job failure", logging.Error(err))
		}
	}
	job.Status = queue.StatusFailed
	job.ErrorMessage = message

	m.setLastError(stageErr)
	m.setLastJob(job)
	m.notifyJobFailed(ctx, job, message)
}

// failureMessage derives the reason stored on the failed job. Stage errors
// built with services.Wrap already read component: operation: detail.
func failureMessage(stageName string, stageErr error) string {
	if stageErr != nil {
		if message := strings.TrimSpace(stageErr.Error()); message != "" {
			return message
		}
	}
	if stageName != "" {
		return stageName + " failed without error detail"
	}
	return "workflow failed without error detail"
}
