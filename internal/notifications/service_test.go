package notifications_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"reelpress/internal/config"
	"reelpress/internal/notifications"
)

func webhookConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.WebhookURL = url
	cfg.Notifications.RequestTimeout = 5
	cfg.Notifications.MaxAttempts = 3
	cfg.Notifications.RetryBackoff = 2
	return &cfg
}

func TestNewServiceReturnsNoopWhenWebhookMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.WebhookURL = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventJobCompleted, notifications.Payload{"job_id": "job_1"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestWebhookServiceDeliversEnvelope(t *testing.T) {
	var captured struct {
		method      string
		contentType string
		body        []byte
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.contentType = r.Header.Get("Content-Type")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		captured.body = body
		_ = r.Body.Close()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := notifications.NewService(webhookConfig(server.URL))
	payload := notifications.Payload{
		"job_id":    "job_0d9f",
		"state":     "completed",
		"video_url": "http://media.test/outputs/jobs/job_0d9f/surf.mp4",
	}
	if err := svc.Publish(context.Background(), notifications.EventJobCompleted, payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if captured.method != http.MethodPost {
		t.Fatalf("expected POST, got %s", captured.method)
	}
	if captured.contentType != "application/json" {
		t.Fatalf("unexpected content type %q", captured.contentType)
	}
	var envelope map[string]any
	if err := json.Unmarshal(captured.body, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope["event"] != string(notifications.EventJobCompleted) {
		t.Fatalf("expected event %q, got %v", notifications.EventJobCompleted, envelope["event"])
	}
	if envelope["job_id"] != "job_0d9f" {
		t.Fatalf("expected job_id in envelope, got %v", envelope["job_id"])
	}
	if envelope["video_url"] != payload["video_url"] {
		t.Fatalf("expected video_url in envelope, got %v", envelope["video_url"])
	}
	stamp, ok := envelope["timestamp"].(string)
	if !ok {
		t.Fatalf("expected timestamp string, got %T", envelope["timestamp"])
	}
	if _, err := time.Parse(time.RFC3339, stamp); err != nil {
		t.Fatalf("timestamp not RFC3339: %v", err)
	}
}

func TestWebhookServiceRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var delays []time.Duration
	svc := notifications.NewService(webhookConfig(server.URL), notifications.WithSleeper(func(d time.Duration) {
		delays = append(delays, d)
	}))
	if err := svc.Publish(context.Background(), notifications.EventJobFailed, notifications.Payload{"job_id": "job_flaky"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("expected 3 delivery attempts, got %d", got)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected %d retry waits, got %d", len(want), len(delays))
	}
	for i, delay := range delays {
		if delay != want[i] {
			t.Fatalf("expected wait %d to be %s, got %s", i, want[i], delay)
		}
	}
}

func TestWebhookServiceStopsOnClientError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "bad signature", http.StatusBadRequest)
	}))
	defer server.Close()

	svc := notifications.NewService(webhookConfig(server.URL), notifications.WithSleeper(func(time.Duration) {}))
	err := svc.Publish(context.Background(), notifications.EventJobCompleted, notifications.Payload{"job_id": "job_x"})
	if err == nil {
		t.Fatal("expected delivery error")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected status in error, got %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected a single attempt for client errors, got %d", got)
	}
}

func TestWebhookServiceGivesUpAfterMaxAttempts(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "still broken", http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := webhookConfig(server.URL)
	cfg.Notifications.MaxAttempts = 2
	svc := notifications.NewService(cfg, notifications.WithSleeper(func(time.Duration) {}))
	err := svc.Publish(context.Background(), notifications.EventJobFailed, notifications.Payload{"job_id": "job_y"})
	if err == nil {
		t.Fatal("expected delivery error")
	}
	if !strings.Contains(err.Error(), "job.failed") {
		t.Fatalf("expected event name in error, got %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("expected retries to stop at 2 attempts, got %d", got)
	}
}

func TestWebhookServiceHonorsEventToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := webhookConfig(server.URL)
	cfg.Notifications.Completed = false
	cfg.Notifications.Failed = false
	svc := notifications.NewService(cfg)

	for _, event := range []notifications.Event{notifications.EventJobCompleted, notifications.EventJobFailed} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"job_id": "job_quiet"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}
