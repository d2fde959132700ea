package testsupport

import (
	"context"
	"fmt"
	"testing"

	"reelpress/internal/config"
	"reelpress/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a URL-sourced job for tests using the provided store.
func NewJob(t testing.TB, store *queue.Store, sourceURL string) *queue.Job {
	t.Helper()

	job, err := store.NewJob(context.Background(), queue.NewJobParams{
		SourceKind: queue.SourceKindURL,
		SourceURL:  sourceURL,
		InputJSON:  fmt.Sprintf(`{"source_video_url":%q}`, sourceURL),
	})
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return job
}
