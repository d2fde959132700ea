package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reelpress/internal/config"
	"reelpress/internal/logging"
	"reelpress/internal/notifications"
	"reelpress/internal/queue"
	"reelpress/internal/stage"
)

// Manager coordinates the worker pool that drains the job queue.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	notifier     notifications.Service
	pollInterval time.Duration
	workers      int

	// transcodeSlots caps concurrent FFmpeg runs below the worker count.
	transcodeSlots chan struct{}

	stages []pipelineStage

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job
}

// StageSet bundles the concrete stage handlers the manager orchestrates.
type StageSet struct {
	Fetch     stage.Handler
	Transcode stage.Handler
	Upload    stage.Handler
	Publish   stage.Handler
}

// pipelineStage binds a handler to the job status it runs under. Stages
// sharing a status (upload, publish) run back to back without a transition.
type pipelineStage struct {
	name    string
	handler stage.Handler
	status  queue.Status
	gated   bool
}

// NewManager constructs a workflow manager with the default webhook notifier.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	slots := cfg.Workflow.TranscodeSlots
	if slots < 1 {
		slots = 1
	}
	poll := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if poll <= 0 {
		poll = 200 * time.Millisecond
	}
	return &Manager{
		cfg:            cfg,
		store:          store,
		logger:         logging.NewComponentLogger(logger, "workflow"),
		notifier:       notifier,
		pollInterval:   poll,
		workers:        workers,
		transcodeSlots: make(chan struct{}, slots),
	}
}

// ConfigureStages registers the stage handlers in pipeline order. Call before
// Start; nil handlers are skipped so tests can run partial pipelines.
func (m *Manager) ConfigureStages(set StageSet) {
	stages := make([]pipelineStage, 0, 4)
	if set.Fetch != nil {
		stages = append(stages, pipelineStage{name: "fetch", handler: set.Fetch, status: queue.StatusDownloading})
	}
	if set.Transcode != nil {
		stages = append(stages, pipelineStage{name: "transcode", handler: set.Transcode, status: queue.StatusProcessing, gated: true})
	}
	if set.Upload != nil {
		stages = append(stages, pipelineStage{name: "upload", handler: set.Upload, status: queue.StatusUploading})
	}
	if set.Publish != nil {
		stages = append(stages, pipelineStage{name: "publish", handler: set.Publish, status: queue.StatusUploading})
	}

	m.mu.Lock()
	m.stages = stages
	m.mu.Unlock()
}
