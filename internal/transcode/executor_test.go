package transcode_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"reelpress/internal/transcode"
)

func writeFakeBinary(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake shell binaries require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	script := "#!/bin/sh\n" + body
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake binary: %v", err)
	}
	return path
}

func TestCLIRunReportsProgress(t *testing.T) {
	binary := writeFakeBinary(t, strings.Join([]string{
		`echo "out_time_us=15000000"`,
		`echo "speed=2.1x"`,
		`echo "progress=continue"`,
		`echo "out_time_us=30000000"`,
		`echo "progress=end"`,
	}, "\n") + "\n")

	var updates []transcode.Update
	err := transcode.NewCLI().Run(context.Background(), transcode.Request{
		Binary:          binary,
		DurationSeconds: 30,
		Progress: func(update transcode.Update) {
			updates = append(updates, update)
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if updates[0].Percent != 50 || updates[0].Speed != "2.1x" {
		t.Fatalf("unexpected first update: %+v", updates[0])
	}
	if !updates[1].Finished || updates[1].Percent != 100 {
		t.Fatalf("unexpected final update: %+v", updates[1])
	}
}

func TestCLIRunCapturesStderrTail(t *testing.T) {
	binary := writeFakeBinary(t, strings.Join([]string{
		`echo "Unknown encoder 'libx264'" 1>&2`,
		`exit 1`,
	}, "\n") + "\n")

	err := transcode.NewCLI().Run(context.Background(), transcode.Request{Binary: binary})
	if err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(err.Error(), "Unknown encoder") {
		t.Fatalf("expected stderr tail in error, got %v", err)
	}
}

func TestCLIRunHonorsTimeout(t *testing.T) {
	binary := writeFakeBinary(t, "exec sleep 5\n")

	start := time.Now()
	err := transcode.NewCLI().Run(context.Background(), transcode.Request{
		Binary:  binary,
		Timeout: time.Second,
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Fatalf("timeout took too long: %s", elapsed)
	}
}

func TestCLIRunRequiresBinary(t *testing.T) {
	err := transcode.NewCLI().Run(context.Background(), transcode.Request{Binary: "  "})
	if err == nil {
		t.Fatal("expected error for blank binary")
	}
}
