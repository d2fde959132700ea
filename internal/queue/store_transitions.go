package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

func insertEvent(ctx context.Context, tx *sql.Tx, jobID, eventType, message string, payload any, timestamp string) error {
	var payloadJSON any
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		payloadJSON = string(data)
	}
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO job_events (job_id, event_type, message, payload_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		jobID,
		eventType,
		nullableString(message),
		payloadJSON,
		timestamp,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RecordEvent appends an audit event outside a status change.
func (s *Store) RecordEvent(ctx context.Context, jobID, eventType, message string, payload any) error {
	var payloadJSON any
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal event payload: %w", err)
		}
		payloadJSON = string(data)
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO job_events (job_id, event_type, message, payload_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		jobID,
		eventType,
		nullableString(message),
		payloadJSON,
		time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// ClaimNextQueued atomically promotes the oldest queued job to downloading and
// returns it. Returns (nil, nil) when the queue is empty.
func (s *Store) ClaimNextQueued(ctx context.Context) (*Job, error) {
	var claimedID string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT id FROM jobs WHERE status = ? ORDER BY created_at, id LIMIT 1`, StatusQueued)
		var id string
		if err := row.Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("select queued job: %w", err)
		}
		now := time.Now().UTC().Format(time.RFC3339Nano)
		res, err := tx.ExecContext(
			ctx,
			`UPDATE jobs SET status = ?, started_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
			StatusDownloading,
			now,
			now,
			id,
			StatusQueued,
		)
		if err != nil {
			return fmt.Errorf("claim job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			// Another worker won the race inside this poll window.
			return nil
		}
		if err := insertEvent(ctx, tx, id, EventStateChanged, string(StatusQueued)+" -> "+string(StatusDownloading), nil, now); err != nil {
			return err
		}
		claimedID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	if claimedID == "" {
		return nil, nil
	}
	return s.Get(ctx, claimedID)
}

// Transition moves a job to a later status, enforcing the forward-only
// progression, and records the change in the audit trail.
func (s *Store) Transition(ctx context.Context, id string, to Status) error {
	if _, ok := statusSet[to]; !ok {
		return fmt.Errorf("unknown status %q", to)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, id)
		var currentStr string
		if err := row.Scan(&currentStr); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("job %s: %w", id, ErrJobNotFound)
			}
			return fmt.Errorf("select job status: %w", err)
		}
		current := Status(currentStr)
		if !current.CanTransition(to) {
			return fmt.Errorf("job %s: %s -> %s: %w", id, current, to, ErrInvalidTransition)
		}
		now := time.Now().UTC().Format(time.RFC3339Nano)
		res, err := tx.ExecContext(
			ctx,
			`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			to,
			now,
			id,
			current,
		)
		if err != nil {
			return fmt.Errorf("transition job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("job %s: status changed concurrently: %w", id, ErrInvalidTransition)
		}
		return insertEvent(ctx, tx, id, EventStateChanged, string(current)+" -> "+string(to), nil, now)
	})
}

// MarkCompleted moves a job to the completed terminal state.
func (s *Store) MarkCompleted(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT status, degraded FROM jobs WHERE id = ?`, id)
		var (
			currentStr string
			degraded   sql.NullInt64
		)
		if err := row.Scan(&currentStr, &degraded); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("job %s: %w", id, ErrJobNotFound)
			}
			return fmt.Errorf("select job status: %w", err)
		}
		current := Status(currentStr)
		if !current.CanTransition(StatusCompleted) {
			return fmt.Errorf("job %s: %s -> %s: %w", id, current, StatusCompleted, ErrInvalidTransition)
		}
		now := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE jobs
             SET status = ?, progress = 100, progress_message = NULL, error_message = NULL,
                 completed_at = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusCompleted,
			now,
			now,
			id,
			current,
		); err != nil {
			return fmt.Errorf("complete job: %w", err)
		}
		payload := map[string]any{"degraded": degraded.Valid && degraded.Int64 != 0}
		return insertEvent(ctx, tx, id, EventCompleted, "Job completed", payload, now)
	})
}

// MarkFailed moves a job to the failed terminal state with a reason. Failing
// an already terminal job is a no-op so late stage errors cannot clobber a
// completed result.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, id)
		var currentStr string
		if err := row.Scan(&currentStr); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("job %s: %w", id, ErrJobNotFound)
			}
			return fmt.Errorf("select job status: %w", err)
		}
		current := Status(currentStr)
		if IsTerminal(current) {
			return nil
		}
		now := time.Now().UTC().Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE jobs
             SET status = ?, error_message = ?, progress_message = ?, completed_at = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusFailed,
			message,
			nullableString(message),
			now,
			now,
			id,
			current,
		); err != nil {
			return fmt.Errorf("fail job: %w", err)
		}
		// Outputs belong to completed jobs only. A job that fails after the
		// upload stage persisted outputs must not keep them.
		if _, err := tx.ExecContext(ctx, `DELETE FROM job_outputs WHERE job_id = ?`, id); err != nil {
			return fmt.Errorf("clear outputs for failed job: %w", err)
		}
		return insertEvent(ctx, tx, id, EventFailed, message, map[string]any{"from": string(current)}, now)
	})
}

// FailInterrupted fails every job left in an in-flight status by a previous
// daemon process. Called once at startup before workers begin claiming.
func (s *Store) FailInterrupted(ctx context.Context, reason string) (int64, error) {
	if reason == "" {
		reason = InterruptedReason
	}
	var failed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(
			ctx,
			`SELECT id FROM jobs WHERE status IN (?, ?, ?)`,
			StatusDownloading,
			StatusProcessing,
			StatusUploading,
		)
		if err != nil {
			return fmt.Errorf("select interrupted jobs: %w", err)
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan interrupted job: %w", err)
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		now := time.Now().UTC().Format(time.RFC3339Nano)
		for _, id := range ids {
			if _, err := tx.ExecContext(
				ctx,
				`UPDATE jobs SET status = ?, error_message = ?, progress_message = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
				StatusFailed,
				reason,
				reason,
				now,
				now,
				id,
			); err != nil {
				return fmt.Errorf("fail interrupted job %s: %w", id, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM job_outputs WHERE job_id = ?`, id); err != nil {
				return fmt.Errorf("clear outputs for interrupted job %s: %w", id, err)
			}
			if err := insertEvent(ctx, tx, id, EventInterrupted, reason, nil, now); err != nil {
				return err
			}
		}
		failed = int64(len(ids))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return failed, nil
}
