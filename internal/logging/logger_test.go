package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelpress/internal/config"
	"reelpress/internal/logging"
	"reelpress/internal/services"
)

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "console-info.log")

	opts := logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	}

	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "console-debug.log")

	opts := logging.Options{
		Format:           "console",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	}

	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerRendersSubject(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "subject.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "workflow").Info("stage started",
		logging.String(logging.FieldJobID, "job_ab12"),
		logging.String(logging.FieldStage, "transcode"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "[workflow]") {
		t.Fatalf("expected component in output, got %q", text)
	}
	if !strings.Contains(text, "job_ab12 (transcode)") {
		t.Fatalf("expected job subject in output, got %q", text)
	}
}

func TestNewJSONLoggerWritesLowercaseLevel(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "json.log")

	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, `"level":"info"`) {
		t.Fatalf("expected lowercase level key, got %q", text)
	}
	if !strings.Contains(text, `"k":"v"`) {
		t.Fatalf("expected attr in output, got %q", text)
	}
}

func TestNewInvalidFormatFails(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "level.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "invalid",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("visible")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if strings.Contains(text, "hidden") {
		t.Fatalf("expected debug suppressed at default level, got %q", text)
	}
	if !strings.Contains(text, "visible") {
		t.Fatalf("expected info line, got %q", text)
	}
}

func TestFilePathAddsJSONSink(t *testing.T) {
	tempDir := t.TempDir()
	consolePath := filepath.Join(tempDir, "console.log")
	jsonPath := filepath.Join(tempDir, "daemon.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{consolePath},
		FilePath:    jsonPath,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("fan out")

	jsonContent, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read json sink: %v", err)
	}
	if !strings.Contains(string(jsonContent), `"msg":"fan out"`) {
		t.Fatalf("expected json sink line, got %q", jsonContent)
	}
	consoleContent, err := os.ReadFile(consolePath)
	if err != nil {
		t.Fatalf("read console sink: %v", err)
	}
	if !strings.Contains(string(consoleContent), "fan out") {
		t.Fatalf("expected console line, got %q", consoleContent)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "ctx.log")

	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job_xyz")
	ctx = services.WithStage(ctx, "upload")
	ctx = services.WithRequestID(ctx, "req-xyz")

	logging.WithContext(ctx, logger).Info("contextual log")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	for _, fragment := range []string{`"job_id":"job_xyz"`, `"stage":"upload"`, `"request_id":"req-xyz"`} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected %q in output %q", fragment, text)
		}
	}
}

func TestNewFromConfigDefaultsToDaemonLogFile(t *testing.T) {
	logDir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = logDir
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg, logging.Options{
		OutputPaths: []string{filepath.Join(logDir, "console.log")},
	})
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon ready")

	content, err := os.ReadFile(filepath.Join(logDir, "reelpressd.log"))
	if err != nil {
		t.Fatalf("read default sink: %v", err)
	}
	if !strings.Contains(string(content), "daemon ready") {
		t.Fatalf("expected record in default sink, got %q", content)
	}
}

func TestNewFromConfigOptionsTakePrecedence(t *testing.T) {
	logDir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = logDir
	cfg.Logging.Level = "error"
	cfg.Logging.Format = "json"

	runLog := filepath.Join(logDir, "reelpress-run.log")
	logger, err := logging.NewFromConfig(&cfg, logging.Options{
		Level:       "debug",
		FilePath:    runLog,
		OutputPaths: []string{filepath.Join(logDir, "console.log")},
	})
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("tracing claim loop")

	content, err := os.ReadFile(runLog)
	if err != nil {
		t.Fatalf("read run sink: %v", err)
	}
	if !strings.Contains(string(content), "tracing claim loop") {
		t.Fatalf("expected debug record despite config level, got %q", content)
	}
	if _, err := os.Stat(filepath.Join(logDir, "reelpressd.log")); !os.IsNotExist(err) {
		t.Fatalf("expected no default sink when a file path is provided, stat err=%v", err)
	}
}
