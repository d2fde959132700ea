package queue

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusProcessing  Status = "processing"
	StatusUploading   Status = "uploading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// DaemonStopReason is the error message set when jobs are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

// InterruptedReason is the error message set when a restarting daemon finds jobs
// that were in flight when the previous process died.
const InterruptedReason = "Interrupted by daemon restart"

var allStatuses = []Status{
	StatusQueued,
	StatusDownloading,
	StatusProcessing,
	StatusUploading,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// statusRank orders the forward progression. Failed sits outside the ranking;
// it is reachable from any non-terminal status and absorbing once reached.
var statusRank = map[Status]int{
	StatusQueued:      0,
	StatusDownloading: 1,
	StatusProcessing:  2,
	StatusUploading:   3,
	StatusCompleted:   4,
}

var inFlightStatuses = map[Status]struct{}{
	StatusDownloading: {},
	StatusProcessing:  {},
	StatusUploading:   {},
}

// Source kinds accepted at job creation.
const (
	SourceKindURL    = "url"
	SourceKindBase64 = "base64"
)

// Event types recorded in the append-only job audit trail.
const (
	EventCreated       = "created"
	EventStateChanged  = "state_changed"
	EventProgress      = "progress"
	EventDegraded      = "degraded"
	EventPublished     = "published"
	EventPublishFailed = "publish_failed"
	EventCompleted     = "completed"
	EventFailed        = "failed"
	EventInterrupted   = "interrupted"
)

// HealthSummary describes aggregated job counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Queued     int
	Processing int
	Completed  int
	Failed     int
}

// DatabaseHealth captures diagnostic information about the job database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// Job represents a video pipeline job persisted in SQLite.
type Job struct {
	ID               string
	Status           Status
	Progress         float64
	SourceKind       string
	SourceURL        string
	InputJSON        string
	Caption          string
	Hashtags         []string
	PublishRequested bool
	AccountIDs       []string
	SourceFile       string
	EncodedFile      string
	Degraded         bool
	DegradedReason   string
	ErrorMessage     string
	ProgressStage    string
	ProgressMessage  string
	StartedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

// JobOutput is one produced artifact, ordered by position within its job.
type JobOutput struct {
	ID         int64
	JobID      string
	Position   int
	VideoURL   string
	StorageKey string
	Caption    string
	Hashtags   []string
	Publishes  []PublishResult
	CreatedAt  time.Time
}

// PublishResult records one account's publish outcome. Either PublishID or
// Error is set, never both.
type PublishResult struct {
	OpenID      string `json:"open_id"`
	DisplayName string `json:"display_name,omitempty"`
	PublishID   string `json:"publish_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// JobEvent is one append-only audit record for a job.
type JobEvent struct {
	ID          int64
	JobID       string
	Type        string
	Message     string
	PayloadJSON string
	CreatedAt   time.Time
}

// JobDetail bundles a job with its ordered outputs and events.
type JobDetail struct {
	Job     *Job
	Outputs []JobOutput
	Events  []JobEvent
}

// Account stores one connected social account keyed by the platform open id.
type Account struct {
	OpenID           string
	DisplayName      string
	AvatarURL        string
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
	Scopes           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TokenExpiresWithin reports whether the access token expires before now+margin.
// A zero expiry is treated as already expired.
func (a *Account) TokenExpiresWithin(margin time.Duration) bool {
	if a.ExpiresAt.IsZero() {
		return true
	}
	return time.Now().Add(margin).After(a.ExpiresAt)
}

// NewJobID returns a fresh job identifier in the job_<hex> form.
func NewJobID() string {
	return "job_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status can never change again.
func IsTerminal(status Status) bool {
	return status == StatusCompleted || status == StatusFailed
}

// IsInFlight reports whether the status reflects an in-flight pipeline stage.
func IsInFlight(status Status) bool {
	_, ok := inFlightStatuses[status]
	return ok
}

// CanTransition reports whether a job may move from one status to another.
// The progression is strictly forward; failed is reachable from any
// non-terminal status and absorbing once reached.
func (s Status) CanTransition(to Status) bool {
	if s == to {
		return false
	}
	if IsTerminal(s) {
		return false
	}
	if to == StatusFailed {
		return true
	}
	fromRank, ok := statusRank[s]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// IsProcessing returns true when the job is in an in-flight stage.
func (j Job) IsProcessing() bool {
	return IsInFlight(j.Status)
}

// SetProgress updates all three progress fields together.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.Progress = percent
}

// SetDegraded flags the job output as a fallback rendition rather than the
// requested transform.
func (j *Job) SetDegraded(reason string) {
	j.Degraded = true
	j.DegradedReason = reason
}
