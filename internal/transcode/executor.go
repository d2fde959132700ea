package transcode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

// Request describes one FFmpeg invocation. DurationSeconds is the probed
// source duration used to turn out_time reports into percentages; zero means
// percentages are unavailable.
type Request struct {
	Binary          string
	Args            []string
	Timeout         time.Duration
	DurationSeconds float64
	Progress        func(Update)
}

// Executor runs FFmpeg. The CLI implementation shells out; tests substitute
// fakes that script success, failure, or hangs.
type Executor interface {
	Run(ctx context.Context, req Request) error
}

// CLI executes FFmpeg as a subprocess, scanning stdout for -progress reports
// and keeping a stderr tail for error messages.
type CLI struct{}

// NewCLI constructs the subprocess executor.
func NewCLI() *CLI {
	return &CLI{}
}

func (c *CLI) Run(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.Binary) == "" {
		return errors.New("ffmpeg binary required")
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := commandContext(ctx, req.Binary, req.Args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	tail := newTailWriter(2048)
	cmd.Stderr = tail
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", req.Binary, err)
	}

	parser := newProgressParser(req.DurationSeconds)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		update, done := parser.Feed(scanner.Text())
		if done && req.Progress != nil {
			req.Progress(update)
		}
	}
	scanErr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%s timed out: %w", req.Binary, context.DeadlineExceeded)
		}
		if detail := tail.String(); detail != "" {
			return fmt.Errorf("%s failed: %w: %s", req.Binary, err, detail)
		}
		return fmt.Errorf("%s failed: %w", req.Binary, err)
	}
	if scanErr != nil {
		return fmt.Errorf("read %s progress: %w", req.Binary, scanErr)
	}
	return nil
}

var _ Executor = (*CLI)(nil)

// tailWriter keeps the last max bytes written, collapsed to a single line.
type tailWriter struct {
	max int
	buf []byte
}

func newTailWriter(max int) *tailWriter {
	return &tailWriter{max: max}
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	if len(w.buf) > w.max {
		w.buf = w.buf[len(w.buf)-w.max:]
	}
	return len(p), nil
}

func (w *tailWriter) String() string {
	text := strings.TrimSpace(string(w.buf))
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, " | ")
}
