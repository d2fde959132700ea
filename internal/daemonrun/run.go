// Package daemonrun wires the daemon process runtime: logging sinks, the
// queue store, workflow stages, the HTTP server, and signal handling.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"reelpress/internal/config"
	"reelpress/internal/daemon"
	"reelpress/internal/fetch"
	"reelpress/internal/logging"
	"reelpress/internal/notifications"
	"reelpress/internal/preflight"
	"reelpress/internal/queue"
	"reelpress/internal/server"
	"reelpress/internal/social"
	"reelpress/internal/transcode"
	"reelpress/internal/upload"
	"reelpress/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the reelpress daemon runtime loop and blocks until the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("reelpress-%s.log", runID))
	eventsPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("reelpress-%s.events", runID))
	logHub := logging.NewStreamHub(4096)
	eventArchive, archiveErr := logging.NewEventArchive(eventsPath)
	if archiveErr != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize log archive: %v\n", archiveErr)
	} else if eventArchive != nil {
		logHub.AddSink(eventArchive)
	}

	sessionID := uuid.NewString()
	logger, err := logging.NewFromConfig(cfg, logging.Options{
		Level:       opts.LogLevel,
		Development: opts.Development,
		FilePath:    logPath,
		Hub:         logHub,
		SessionID:   sessionID,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	debugDir := filepath.Join(cfg.Paths.LogDir, "debug")
	debugLogPath := filepath.Join(debugDir, fmt.Sprintf("reelpress-%s.log", runID))
	if opts.Development {
		debugLogger, debugErr := logging.New(logging.Options{
			Level:            "debug",
			Format:           "json",
			OutputPaths:      []string{debugLogPath},
			ErrorOutputPaths: []string{debugLogPath},
			Development:      true,
			SessionID:        sessionID,
		})
		if debugErr != nil {
			fmt.Fprintf(os.Stderr, "warn: unable to initialize debug logger: %v\n", debugErr)
		} else {
			logger = logging.TeeLogger(logger, debugLogger.Handler())
			logger.Info("development mode enabled", logging.String("debug_log_path", debugLogPath))
		}
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update reelpress.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "reelpress-*.log", Exclude: []string{logPath}},
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "reelpress-*.events", Exclude: []string{eventsPath}},
		logging.RetentionTarget{Dir: debugDir, Pattern: "*.log", Exclude: []string{debugLogPath}},
	)
	pidPath := filepath.Join(cfg.Paths.LogDir, "reelpressd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logPreflight(signalCtx, logger, cfg)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	manager := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	if err := registerStages(manager, cfg, store, logger); err != nil {
		return err
	}

	srv := server.New(cfg, store, manager, logger)
	d, err := daemon.New(cfg, store, logger, manager, srv)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed", logging.Error(err))
		return err
	}

	<-signalCtx.Done()
	logger.Info("reelpress daemon shutting down")
	return nil
}

func registerStages(mgr *workflow.Manager, cfg *config.Config, store *queue.Store, logger *slog.Logger) error {
	uploader, err := upload.NewUploader(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("create uploader: %w", err)
	}

	set := workflow.StageSet{
		Fetch:     fetch.NewFetcher(cfg, store, logger),
		Transcode: transcode.NewTranscoder(cfg, store, logger),
		Upload:    uploader,
	}
	if cfg.TikTok.Enabled {
		set.Publish = social.NewPublisher(cfg, store, logger)
	}
	mgr.ConfigureStages(set)
	return nil
}

// logPreflight reports readiness checks at startup. Failures are logged but
// do not abort the daemon; jobs touching the degraded component fail with a
// clear message instead.
func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, res := range preflight.RunAll(ctx, cfg) {
		if res.Passed {
			logger.Info("preflight check passed",
				logging.String("check", res.Name),
				logging.String("detail", res.Detail))
			continue
		}
		logger.Warn("preflight check failed",
			logging.String("check", res.Name),
			logging.String("detail", res.Detail))
	}
	for _, dep := range preflight.CheckSystemDeps(ctx, cfg) {
		if dep.Available {
			logger.Info("dependency available",
				logging.String("dependency", dep.Name),
				logging.String("binary", dep.Command))
			continue
		}
		logger.Warn("dependency missing",
			logging.String("dependency", dep.Name),
			logging.String("binary", dep.Command),
			logging.String("detail", dep.Detail))
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "reelpress.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
