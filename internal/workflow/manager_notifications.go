package workflow

import (
	"context"
	"errors"

	"reelpress/internal/logging"
	"reelpress/internal/notifications"
	"reelpress/internal/queue"
)

func (m *Manager) notifyJobCompleted(ctx context.Context, job *queue.Job) {
	if m.notifier == nil {
		return
	}
	payload := notifications.Payload{
		"job_id":   job.ID,
		"state":    string(job.Status),
		"progress": int(job.Progress),
	}
	if job.Degraded {
		payload["degraded"] = true
		payload["degraded_reason"] = job.DegradedReason
	}
	m.publishNotification(ctx, notifications.EventJobCompleted, payload)
}

func (m *Manager) notifyJobFailed(ctx context.Context, job *queue.Job, message string) {
	if m.notifier == nil {
		return
	}
	m.publishNotification(ctx, notifications.EventJobFailed, notifications.Payload{
		"job_id":        job.ID,
		"state":         string(job.Status),
		"error_message": message,
	})
}

// publishNotification delivers best-effort: the notifier runs its own bounded
// retries, and anything that still fails is logged and dropped.
func (m *Manager) publishNotification(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	logger := logging.WithContext(ctx, m.logger)
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not deliver notification", logging.String("event", string(event)))
			return
		}
		logger.Debug("notification delivery failed", logging.String("event", string(event)), logging.Error(err))
	}
}
