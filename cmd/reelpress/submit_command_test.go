package main

import (
	"context"
	"encoding/json"
	"path/filepath"
	"regexp"
	"testing"

	"reelpress/internal/queue"
	"reelpress/internal/testsupport"
)

var jobIDPattern = regexp.MustCompile(`job_[0-9a-f]+`)

func TestSubmitWithURL(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{
		"submit",
		"--url", "https://example.test/source.mp4",
		"--caption", "first reel",
		"--hashtag", "golang",
	}, env)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, out, "Submitted job")

	jobID := jobIDPattern.FindString(out)
	if jobID == "" {
		t.Fatalf("no job id in output:\n%s", out)
	}

	job, err := env.store.Get(context.Background(), jobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job == nil {
		t.Fatalf("job %s not persisted", jobID)
	}
	if job.Status != queue.StatusQueued {
		t.Fatalf("status = %s, want queued", job.Status)
	}
	if job.Caption != "first reel" {
		t.Fatalf("caption = %q", job.Caption)
	}
}

func TestSubmitWithFileStagesSource(t *testing.T) {
	env := setupCLITestEnv(t)

	source := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteVideoFile(t, source, 16*1024)

	out, err := runCLI(t, []string{"submit", "--file", source, "--json"}, env)
	if err != nil {
		t.Fatalf("submit --file: %v", err)
	}

	var resp struct {
		JobID string `json:"job_id"`
		State string `json:"state"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if resp.State != string(queue.StatusQueued) {
		t.Fatalf("state = %q, want queued", resp.State)
	}

	job, err := env.store.Get(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job == nil || job.SourceFile == "" {
		t.Fatal("expected staged source file on job")
	}
}

func TestSubmitRequiresExactlyOneSource(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := runCLI(t, []string{"submit"}, env); err == nil {
		t.Fatal("expected error without a source")
	}
	if _, err := runCLI(t, []string{
		"submit",
		"--url", "https://example.test/a.mp4",
		"--file", "/tmp/b.mp4",
	}, env); err == nil {
		t.Fatal("expected error with both sources")
	}
}
