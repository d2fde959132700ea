package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ErrorBody is the error payload nested inside every non-2xx response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorEnvelope wraps ErrorBody the way handlers serialize it.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// SubmitJobRequest is the POST /jobs body.
type SubmitJobRequest struct {
	SourceVideoURL    string   `json:"source_video_url,omitempty"`
	SourceVideoBase64 string   `json:"source_video_base64,omitempty"`
	Caption           string   `json:"caption,omitempty"`
	Hashtags          []string `json:"hashtags,omitempty"`
	PostToTikTok      bool     `json:"postToTikTok,omitempty"`
	TikTokAccountIDs  []string `json:"tiktok_account_ids,omitempty"`
}

// SubmitJobResponse acknowledges an accepted job before the pipeline runs.
type SubmitJobResponse struct {
	JobID    string `json:"job_id"`
	State    string `json:"state"`
	Progress int    `json:"progress"`
}

// PublishView is one account's publish outcome inside an output.
type PublishView struct {
	OpenID      string `json:"open_id"`
	DisplayName string `json:"display_name,omitempty"`
	PublishID   string `json:"publish_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// OutputView is one produced artifact.
type OutputView struct {
	VideoURL   string        `json:"video_url"`
	StorageKey string        `json:"storage_key"`
	Caption    string        `json:"caption,omitempty"`
	Hashtags   []string      `json:"hashtags,omitempty"`
	Publishes  []PublishView `json:"publishes,omitempty"`
}

// EventView is one append-only audit record.
type EventView struct {
	Type      string          `json:"type"`
	Message   string          `json:"message,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt string          `json:"created_at"`
}

// JobView is the full job representation served by GET /jobs/{id}.
type JobView struct {
	JobID          string          `json:"job_id"`
	State          string          `json:"state"`
	Progress       int             `json:"progress"`
	Input          json.RawMessage `json:"input,omitempty"`
	Output         []OutputView    `json:"output"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	Degraded       bool            `json:"degraded,omitempty"`
	DegradedReason string          `json:"degraded_reason,omitempty"`
	CreatedAt      string          `json:"created_at,omitempty"`
	UpdatedAt      string          `json:"updated_at,omitempty"`
	StartedAt      string          `json:"started_at,omitempty"`
	CompletedAt    string          `json:"completed_at,omitempty"`
	Events         []EventView     `json:"events,omitempty"`
}

// JobSummary is the compact listing row served by GET /jobs.
type JobSummary struct {
	JobID        string `json:"job_id"`
	State        string `json:"state"`
	Progress     int    `json:"progress"`
	Source       string `json:"source"`
	Caption      string `json:"caption,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// JobListResponse wraps GET /jobs.
type JobListResponse struct {
	Jobs []JobSummary `json:"jobs"`
}

// ClearJobsResponse reports how many rows a DELETE /jobs removed.
type ClearJobsResponse struct {
	Removed int64 `json:"removed"`
}

// StatsResponse carries per-state job counts.
type StatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// AccountView is a connected account without token material.
type AccountView struct {
	OpenID      string `json:"open_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	TokenExpiry string `json:"token_expiry,omitempty"`
	ConnectedAt string `json:"connected_at,omitempty"`
}

// AccountListResponse wraps GET /accounts.
type AccountListResponse struct {
	Accounts []AccountView `json:"accounts"`
}

// RemoveAccountResponse wraps DELETE /accounts/:open_id.
type RemoveAccountResponse struct {
	Removed bool   `json:"removed"`
	OpenID  string `json:"open_id"`
}

// StageHealthView mirrors readiness reporting for pipeline stages.
type StageHealthView struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// WorkflowStatusView summarizes workflow execution state.
type WorkflowStatusView struct {
	Running     bool              `json:"running"`
	QueueStats  map[string]int    `json:"queue_stats"`
	LastError   string            `json:"last_error,omitempty"`
	LastJob     *JobSummary       `json:"last_job,omitempty"`
	StageHealth []StageHealthView `json:"stage_health"`
}

// StatusResponse aggregates daemon runtime information.
type StatusResponse struct {
	Running     bool               `json:"running"`
	PID         int                `json:"pid"`
	QueueDBPath string             `json:"queue_db_path,omitempty"`
	Workflow    WorkflowStatusView `json:"workflow"`
}

// HealthResponse is the unauthenticated liveness payload.
type HealthResponse struct {
	Status string `json:"status"`
}
