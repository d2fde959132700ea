package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelpress/internal/config"
)

const userAgent = "reelpress/0.1.0"

// Event identifies a pipeline milestone that can be delivered to a webhook.
type Event string

const (
	// EventJobCompleted fires when a job reaches the completed state.
	EventJobCompleted Event = "job.completed"
	// EventJobFailed fires when a job reaches the failed state.
	EventJobFailed Event = "job.failed"
)

// Payload carries the event-specific fields serialized into the webhook body.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// Option customizes the webhook notifier returned by NewService.
type Option func(*webhookService)

// WithSleeper overrides how retry waits are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(s *webhookService) {
		s.sleeper = sleeper
	}
}

// NewService builds a notification service backed by the configured webhook.
// When no webhook URL is configured, a noop implementation is returned.
func NewService(cfg *config.Config, opts ...Option) Service {
	endpoint := strings.TrimSpace(cfg.Notifications.WebhookURL)
	if endpoint == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	attempts := cfg.Notifications.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	svc := &webhookService{
		endpoint:  endpoint,
		client:    &http.Client{Timeout: timeout},
		attempts:  attempts,
		backoff:   time.Duration(cfg.Notifications.RetryBackoff) * time.Second,
		completed: cfg.Notifications.Completed,
		failed:    cfg.Notifications.Failed,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

type webhookService struct {
	endpoint  string
	client    *http.Client
	attempts  int
	backoff   time.Duration
	completed bool
	failed    bool
	sleeper   func(time.Duration)
}

func (w *webhookService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !w.wants(event) {
		return nil
	}

	body, err := json.Marshal(w.envelope(event, payload))
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		lastErr = w.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		delay, retry := w.retryDelay(ctx, lastErr, attempt)
		if !retry {
			break
		}
		if err := w.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("deliver %s webhook: %w", event, lastErr)
}

// wants reports whether delivery for the event is enabled. Unknown events are
// dropped rather than delivered with a shape the receiver never agreed to.
func (w *webhookService) wants(event Event) bool {
	switch event {
	case EventJobCompleted:
		return w.completed
	case EventJobFailed:
		return w.failed
	default:
		return false
	}
}

func (w *webhookService) envelope(event Event, payload Payload) map[string]any {
	body := make(map[string]any, len(payload)+2)
	for key, value := range payload {
		body[key] = value
	}
	body["event"] = string(event)
	body["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	return body
}

func (w *webhookService) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(detail))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("webhook returned %d: %s", e.StatusCode, e.Body)
}

// retryDelay decides whether the attempt should be retried and how long to
// wait first. Client errors are definitive; only timeouts, throttling, server
// errors, and transport failures earn another attempt.
func (w *webhookService) retryDelay(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if attempt >= w.attempts {
		return 0, false
	}
	if ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
		default:
			return 0, false
		}
	}

	// attempt 1 -> backoff, attempt 2 -> backoff*2, ...
	delay := w.backoff
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay, true
}

func (w *webhookService) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if w.sleeper != nil {
		w.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
