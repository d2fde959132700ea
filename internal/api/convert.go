package api

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"reelpress/internal/queue"
	"reelpress/internal/workflow"
)

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Format(dateTimeFormat)
}

func formatTimePtr(value *time.Time) string {
	if value == nil {
		return ""
	}
	return formatTime(*value)
}

func rawJSON(value string) json.RawMessage {
	if value == "" || !json.Valid([]byte(value)) {
		return nil
	}
	return json.RawMessage(value)
}

func sourceLabel(job *queue.Job) string {
	if job.SourceKind == queue.SourceKindBase64 {
		return "base64 upload"
	}
	return job.SourceURL
}

// JobSummaryFrom converts a queue job into its listing row.
func JobSummaryFrom(job *queue.Job) JobSummary {
	return JobSummary{
		JobID:        job.ID,
		State:        string(job.Status),
		Progress:     int(job.Progress),
		Source:       sourceLabel(job),
		Caption:      job.Caption,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    formatTime(job.CreatedAt),
		UpdatedAt:    formatTime(job.UpdatedAt),
	}
}

// OutputViewFrom converts one stored artifact row.
func OutputViewFrom(output queue.JobOutput) OutputView {
	view := OutputView{
		VideoURL:   output.VideoURL,
		StorageKey: output.StorageKey,
		Caption:    output.Caption,
		Hashtags:   output.Hashtags,
	}
	for _, publish := range output.Publishes {
		view.Publishes = append(view.Publishes, PublishView{
			OpenID:      publish.OpenID,
			DisplayName: publish.DisplayName,
			PublishID:   publish.PublishID,
			Error:       publish.Error,
		})
	}
	return view
}

// JobViewFrom converts a job with its outputs and events into the full
// representation served by GET /jobs/{id}.
func JobViewFrom(detail *queue.JobDetail) JobView {
	job := detail.Job
	view := JobView{
		JobID:          job.ID,
		State:          string(job.Status),
		Progress:       int(job.Progress),
		Input:          rawJSON(job.InputJSON),
		Output:         make([]OutputView, 0, len(detail.Outputs)),
		ErrorMessage:   job.ErrorMessage,
		Degraded:       job.Degraded,
		DegradedReason: job.DegradedReason,
		CreatedAt:      formatTime(job.CreatedAt),
		UpdatedAt:      formatTime(job.UpdatedAt),
		StartedAt:      formatTimePtr(job.StartedAt),
		CompletedAt:    formatTimePtr(job.CompletedAt),
	}
	for _, output := range detail.Outputs {
		view.Output = append(view.Output, OutputViewFrom(output))
	}
	for _, event := range detail.Events {
		view.Events = append(view.Events, EventView{
			Type:      event.Type,
			Message:   event.Message,
			Payload:   rawJSON(event.PayloadJSON),
			CreatedAt: formatTime(event.CreatedAt),
		})
	}
	return view
}

// AccountViewFrom strips token material from a stored account.
func AccountViewFrom(account *queue.Account) AccountView {
	return AccountView{
		OpenID:      account.OpenID,
		DisplayName: account.DisplayName,
		AvatarURL:   account.AvatarURL,
		TokenExpiry: formatTime(account.ExpiresAt),
		ConnectedAt: formatTime(account.CreatedAt),
	}
}

// WorkflowStatusViewFrom converts the manager's status summary.
func WorkflowStatusViewFrom(summary workflow.StatusSummary) WorkflowStatusView {
	view := WorkflowStatusView{
		Running:    summary.Running,
		QueueStats: make(map[string]int, len(summary.QueueStats)),
		LastError:  summary.LastError,
	}
	for status, count := range summary.QueueStats {
		view.QueueStats[string(status)] = count
	}
	if summary.LastJob != nil {
		last := JobSummaryFrom(summary.LastJob)
		view.LastJob = &last
	}
	names := make([]string, 0, len(summary.StageHealth))
	for name := range summary.StageHealth {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		health := summary.StageHealth[name]
		view.StageHealth = append(view.StageHealth, StageHealthView{
			Name:   health.Name,
			Ready:  health.Ready,
			Detail: health.Detail,
		})
	}
	return view
}

// StatusResponseFrom assembles the daemon status payload.
func StatusResponseFrom(summary workflow.StatusSummary, queueDBPath string) StatusResponse {
	return StatusResponse{
		Running:     summary.Running,
		PID:         os.Getpid(),
		QueueDBPath: queueDBPath,
		Workflow:    WorkflowStatusViewFrom(summary),
	}
}
