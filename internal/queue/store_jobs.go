package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NewJobParams describes a job to enqueue.
type NewJobParams struct {
	ID               string // assigned when empty
	SourceKind       string
	SourceURL        string
	SourceFile       string // pre-staged file for base64 submissions
	Caption          string
	Hashtags         []string
	PublishRequested bool
	AccountIDs       []string
	InputJSON        string
}

// NewJob inserts a job in the queued state and records its creation event.
func (s *Store) NewJob(ctx context.Context, params NewJobParams) (*Job, error) {
	if params.SourceKind == "" {
		params.SourceKind = SourceKindURL
	}
	switch params.SourceKind {
	case SourceKindURL:
		if params.SourceURL == "" {
			return nil, errors.New("source url is required")
		}
	case SourceKindBase64:
		if params.SourceFile == "" {
			return nil, errors.New("source file is required for base64 submissions")
		}
	default:
		return nil, fmt.Errorf("unknown source kind %q", params.SourceKind)
	}

	id := params.ID
	if id == "" {
		id = NewJobID()
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO jobs (
                id, status, progress, source_kind, source_url, input_json, caption,
                hashtags_json, publish_requested, account_ids_json, source_file,
                created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id,
			StatusQueued,
			0.0,
			params.SourceKind,
			nullableString(params.SourceURL),
			nullableString(params.InputJSON),
			nullableString(params.Caption),
			encodeStringSlice(params.Hashtags),
			boolToInt(params.PublishRequested),
			encodeStringSlice(params.AccountIDs),
			nullableString(params.SourceFile),
			timestamp,
			timestamp,
		); err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		return insertEvent(ctx, tx, id, EventCreated, "Job created", map[string]any{
			"source_kind": params.SourceKind,
			"source_url":  params.SourceURL,
		}, timestamp)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Get fetches a job by identifier. A missing job returns (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// GetDetail assembles a job with its ordered outputs and events.
// A missing job returns (nil, nil).
func (s *Store) GetDetail(ctx context.Context, id string) (*JobDetail, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	outputs, err := s.OutputsForJob(ctx, id)
	if err != nil {
		return nil, err
	}
	events, err := s.EventsForJob(ctx, id)
	if err != nil {
		return nil, err
	}
	return &JobDetail{Job: job, Outputs: outputs, Events: events}, nil
}

// Update persists stage-owned fields of a job: staged file paths, the degraded
// flag, and progress. Status changes go through Transition and the Mark
// helpers so the forward-only progression cannot be bypassed.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs
         SET source_file = ?, encoded_file = ?, degraded = ?, degraded_reason = ?,
             progress = ?, progress_stage = ?, progress_message = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(job.SourceFile),
		nullableString(job.EncodedFile),
		boolToInt(job.Degraded),
		nullableString(job.DegradedReason),
		job.Progress,
		nullableString(job.ProgressStage),
		nullableString(job.ProgressMessage),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// UpdateProgress persists the progress trio for a job without touching anything else.
func (s *Store) UpdateProgress(ctx context.Context, id, stage, message string, percent float64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET progress = ?, progress_stage = ?, progress_message = ?, updated_at = ? WHERE id = ?`,
		percent,
		nullableString(stage),
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
