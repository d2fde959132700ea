package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reelpress/internal/logging"
	"reelpress/internal/queue"
	"reelpress/internal/services"
)

// Start fails over jobs stranded in flight by a previous process, then
// launches the worker pool.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.stages) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	interrupted, err := m.store.FailInterrupted(ctx, queue.InterruptedReason)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("reconcile interrupted jobs: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	workers := m.workers
	m.wg.Add(workers)
	m.mu.Unlock()

	if interrupted > 0 {
		m.logger.Info("failed jobs interrupted by previous run", logging.Int64("count", interrupted))
	}

	for i := 0; i < workers; i++ {
		go m.runWorker(runCtx, i+1)
	}
	return nil
}

// Stop cancels the workers, waits for them to drain, and fails whatever they
// were holding mid-stage so a restart never resumes half-finished work.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	stopped, err := m.store.FailInterrupted(context.Background(), queue.DaemonStopReason)
	if err != nil {
		m.logger.Warn("failed to fail in-flight jobs on shutdown", logging.Error(err))
		return
	}
	if stopped > 0 {
		m.logger.Info("failed in-flight jobs on shutdown", logging.Int64("count", stopped))
	}
}

func (m *Manager) runWorker(ctx context.Context, index int) {
	defer m.wg.Done()

	ctx = services.WithWorker(ctx, index)
	logger := logging.WithContext(ctx, m.logger)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.ClaimNextQueued(ctx)
		if err != nil {
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if job == nil {
			m.waitForJobOrShutdown(ctx)
			continue
		}

		if err := m.processJob(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.setLastError(err)
	logger.Error("failed to claim next job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_claim_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	wait := m.pollInterval
	if wait < time.Second {
		wait = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
