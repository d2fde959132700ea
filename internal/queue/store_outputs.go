package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// OutputParams describes one artifact to record against a job.
type OutputParams struct {
	VideoURL   string
	StorageKey string
	Caption    string
	Hashtags   []string
	Publishes  []PublishResult
}

// SetOutputs replaces the output list for a job. Outputs are written once per
// pipeline run; replacing keeps re-runs idempotent.
func (s *Store) SetOutputs(ctx context.Context, jobID string, outputs []OutputParams) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE id = ?`, jobID)
		var one int
		if err := row.Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
			}
			return fmt.Errorf("select job: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM job_outputs WHERE job_id = ?`, jobID); err != nil {
			return fmt.Errorf("clear outputs: %w", err)
		}
		now := time.Now().UTC().Format(time.RFC3339Nano)
		for position, output := range outputs {
			var publishesJSON any
			if len(output.Publishes) > 0 {
				data, err := json.Marshal(output.Publishes)
				if err != nil {
					return fmt.Errorf("marshal publish results: %w", err)
				}
				publishesJSON = string(data)
			}
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO job_outputs (job_id, position, video_url, storage_key, caption, hashtags_json, publishes_json, created_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				jobID,
				position,
				output.VideoURL,
				nullableString(output.StorageKey),
				nullableString(output.Caption),
				encodeStringSlice(output.Hashtags),
				publishesJSON,
				now,
			); err != nil {
				return fmt.Errorf("insert output %d: %w", position, err)
			}
		}
		return nil
	})
}

// SetPublishResults records the per-account publish outcomes on one output.
func (s *Store) SetPublishResults(ctx context.Context, jobID string, position int, results []PublishResult) error {
	var publishesJSON any
	if len(results) > 0 {
		data, err := json.Marshal(results)
		if err != nil {
			return fmt.Errorf("marshal publish results: %w", err)
		}
		publishesJSON = string(data)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE job_outputs SET publishes_json = ? WHERE job_id = ? AND position = ?`,
		publishesJSON,
		jobID,
		position,
	)
	if err != nil {
		return fmt.Errorf("set publish results: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %s output %d: %w", jobID, position, ErrJobNotFound)
	}
	return nil
}

// OutputsForJob returns a job's outputs ordered by position.
func (s *Store) OutputsForJob(ctx context.Context, jobID string) ([]JobOutput, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+outputColumns+` FROM job_outputs WHERE job_id = ? ORDER BY position`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("query outputs: %w", err)
	}
	defer rows.Close()

	var outputs []JobOutput
	for rows.Next() {
		output, err := scanOutput(rows)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, output)
	}
	return outputs, rows.Err()
}

// EventsForJob returns a job's audit events in insertion order.
func (s *Store) EventsForJob(ctx context.Context, jobID string) ([]JobEvent, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+eventColumns+` FROM job_events WHERE job_id = ? ORDER BY id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []JobEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
