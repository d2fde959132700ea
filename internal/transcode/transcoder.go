package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"reelpress/internal/config"
	"reelpress/internal/deps"
	"reelpress/internal/fileutil"
	"reelpress/internal/logging"
	"reelpress/internal/queue"
	"reelpress/internal/services"
	"reelpress/internal/stage"
)

// Transcoder manages FFmpeg processing of staged sources.
type Transcoder struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	executor Executor
}

const (
	minTranscodedBytes      = 4 * 1024
	remuxTimeout            = 90 * time.Second
	progressPersistInterval = 2 * time.Second
)

// NewTranscoder constructs the processing stage handler with the subprocess
// executor.
func NewTranscoder(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Transcoder {
	return NewTranscoderWithExecutor(cfg, store, logger, NewCLI())
}

// NewTranscoderWithExecutor allows injecting the FFmpeg executor (used in
// tests).
func NewTranscoderWithExecutor(cfg *config.Config, store *queue.Store, logger *slog.Logger, executor Executor) *Transcoder {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "transcode"))
	}
	if executor == nil {
		executor = NewCLI()
	}
	return &Transcoder{store: store, cfg: cfg, logger: stageLogger, executor: executor}
}

func (t *Transcoder) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, t.logger)
	job.SetProgress("Processing", "Starting transcode", 0)
	logger.Debug("starting transcode preparation")
	return nil
}

func (t *Transcoder) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, t.logger)
	stageStart := time.Now()

	if err := stage.RequireFile("transcode", job.SourceFile, 1); err != nil {
		return err
	}

	probe, err := transcodeProbe(ctx, t.cfg.FFprobeBinary(), job.SourceFile)
	if err != nil {
		return services.Wrap(
			services.ErrExternalTool,
			"transcode",
			"probe source",
			"Failed to inspect the source video with ffprobe",
			err,
		)
	}
	video, ok := probe.FirstVideoStream()
	if !ok {
		return services.Wrap(
			services.ErrValidation,
			"transcode",
			"probe source",
			"Source has no video stream",
			nil,
		)
	}
	duration := probe.DurationSeconds()

	encodedDir := filepath.Join(filepath.Dir(job.SourceFile), "encoded")
	if err := os.RemoveAll(encodedDir); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"transcode",
			"remove stale artifacts",
			"Failed to remove previous encoded outputs",
			err,
		)
	}
	if err := os.MkdirAll(encodedDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"transcode",
			"ensure encoded dir",
			"Failed to create encoded directory; set paths.staging_dir to a writable path",
			err,
		)
	}
	output := filepath.Join(encodedDir, deriveOutputName(job.SourceFile))

	plan := buildEncodePlan(t.cfg, job.SourceFile, output, probe)
	fit := "landscape_pad"
	if video.Height >= video.Width {
		fit = "portrait_pad"
	}
	planAttrs := append(
		logging.DecisionAttrs("transcode_frame_fit", fit, fmt.Sprintf("source %dx%d", video.Width, video.Height)),
		logging.String("filter_graph", plan.FilterGraph),
		logging.String("audio_mode", plan.AudioMode),
		logging.Float64("source_duration_seconds", duration),
	)
	logger.Info("transcode plan", logging.Args(planAttrs...)...)

	timeout := time.Duration(t.cfg.Transcode.Timeout) * time.Second
	encodeErr := t.runFFmpeg(ctx, job, plan, duration, timeout, logger)
	if encodeErr == nil {
		encodeErr = t.validateArtifact(ctx, output)
	}

	degradedReason := ""
	if encodeErr != nil {
		reason, fallbackErr := t.fallback(ctx, job, output, encodeErr, logger)
		if fallbackErr != nil {
			return fallbackErr
		}
		degradedReason = reason
	}

	job.EncodedFile = output
	message := "Transcode completed"
	if degradedReason != "" {
		job.SetDegraded(degradedReason)
		message = "Delivered fallback output"
		if err := t.store.RecordEvent(ctx, job.ID, queue.EventDegraded, degradedReason, nil); err != nil {
			logger.Warn("failed to record degraded event", logging.Error(err))
		}
	}
	job.SetProgress("Processing", message, 100)

	var sourceBytes, outputBytes int64
	if info, err := os.Stat(job.SourceFile); err == nil {
		sourceBytes = info.Size()
	}
	if info, err := os.Stat(output); err == nil {
		outputBytes = info.Size()
	}
	summary := []logging.Attr{
		logging.String("encoded_file", output),
		logging.Duration("stage_duration", time.Since(stageStart)),
		logging.Int64("source_bytes", sourceBytes),
		logging.Int64("output_bytes", outputBytes),
		logging.Bool("degraded", degradedReason != ""),
	}
	if degradedReason != "" {
		summary = append(summary, logging.String("degraded_reason", degradedReason))
	}
	logger.Info("transcode stage summary", logging.Args(summary...)...)
	return nil
}

func (t *Transcoder) runFFmpeg(ctx context.Context, job *queue.Job, plan Plan, duration float64, timeout time.Duration, logger *slog.Logger) error {
	binary := deps.ResolveFFmpegPath(t.cfg.FFmpegBinary())
	logger.Info(
		"launching ffmpeg",
		logging.String("command", commandLine(binary, plan.Args)),
		logging.String("input", job.SourceFile),
	)

	var lastPersisted time.Time
	sampler := logging.NewProgressSampler(5)
	progress := func(update Update) {
		if update.Percent >= 0 {
			job.Progress = update.Percent
		}
		message := progressMessage(update)
		if message != "" {
			job.ProgressMessage = message
		}
		if sampler.ShouldLog(update.Percent, job.ProgressStage, message) {
			attrs := []logging.Attr{logging.Float64("progress_percent", update.Percent)}
			if update.Speed != "" {
				attrs = append(attrs, logging.String("progress_speed", update.Speed))
			}
			logger.Info("ffmpeg progress", logging.Args(attrs...)...)
		}
		now := time.Now()
		if !lastPersisted.IsZero() && now.Sub(lastPersisted) < progressPersistInterval {
			return
		}
		lastPersisted = now
		if t.store == nil {
			return
		}
		if err := t.store.UpdateProgress(ctx, job.ID, job.ProgressStage, job.ProgressMessage, job.Progress); err != nil {
			logger.Warn("failed to persist transcode progress", logging.Error(err))
		}
		if err := t.store.RecordEvent(ctx, job.ID, queue.EventProgress, job.ProgressMessage, map[string]any{
			"stage":   job.ProgressStage,
			"percent": job.Progress,
		}); err != nil {
			logger.Warn("failed to record progress event", logging.Error(err))
		}
	}

	return t.executor.Run(ctx, Request{
		Binary:          binary,
		Args:            plan.Args,
		Timeout:         timeout,
		DurationSeconds: duration,
		Progress:        progress,
	})
}

// fallback produces a degraded output after an encode failure. Returns the
// degraded reason on success; an error means the stage is out of options and
// the job fails.
func (t *Transcoder) fallback(ctx context.Context, job *queue.Job, output string, encodeErr error, logger *slog.Logger) (string, error) {
	policy := strings.ToLower(strings.TrimSpace(t.cfg.Transcode.Fallback))
	if policy == "" {
		policy = "remux"
	}
	if policy == "none" {
		marker := services.ErrExternalTool
		operation := "ffmpeg encode"
		if errors.Is(encodeErr, context.DeadlineExceeded) {
			marker = services.ErrTimeout
			operation = "ffmpeg timeout"
		}
		return "", services.Wrap(
			marker,
			"transcode",
			operation,
			"FFmpeg transcode failed and fallback is disabled; check the ffmpeg install and the source file",
			encodeErr,
		)
	}

	logger.Warn(
		"transcode failed; attempting fallback",
		logging.String("fallback_policy", policy),
		logging.Error(encodeErr),
	)

	reason := "transcode failed; delivered an unmodified copy of the source"
	if policy == "remux" {
		binary := deps.ResolveFFmpegPath(t.cfg.FFmpegBinary())
		remuxErr := t.executor.Run(ctx, Request{
			Binary:  binary,
			Args:    buildRemuxPlan(job.SourceFile, output).Args,
			Timeout: remuxTimeout,
		})
		if remuxErr == nil {
			if info, statErr := os.Stat(output); statErr == nil && info.Size() > 0 {
				logger.Info("remux fallback succeeded", logging.String("encoded_file", output))
				return "transcode failed; delivered a remuxed copy of the source", nil
			}
			remuxErr = errors.New("remux produced no output")
		}
		logger.Warn("remux fallback failed; copying source bytes", logging.Error(remuxErr))
		reason = "transcode and remux failed; delivered an unmodified copy of the source"
	}

	if err := fileutil.CopyFile(job.SourceFile, output); err != nil {
		return "", services.Wrap(
			services.ErrTransient,
			"transcode",
			"copy fallback",
			"Failed to copy the source as a fallback output",
			err,
		)
	}
	logger.Info("copy fallback succeeded", logging.String("encoded_file", output))
	return reason, nil
}

// validateArtifact checks the encoded output. Failures feed the fallback
// chain rather than the caller, so errors stay unclassified.
func (t *Transcoder) validateArtifact(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat encoded file: %w", err)
	}
	if info.Size() < minTranscodedBytes {
		return fmt.Errorf("encoded file is unexpectedly small (%d bytes)", info.Size())
	}
	probe, err := transcodeProbe(ctx, t.cfg.FFprobeBinary(), path)
	if err != nil {
		return fmt.Errorf("ffprobe encoded file: %w", err)
	}
	if probe.VideoStreamCount() == 0 {
		return errors.New("encoded file has no video stream")
	}
	if probe.DurationSeconds() <= 0 {
		return errors.New("encoded file duration could not be determined")
	}
	return nil
}

// HealthCheck verifies the FFmpeg and ffprobe binaries resolve.
func (t *Transcoder) HealthCheck(ctx context.Context) stage.Health {
	const name = "transcode"
	if t.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	for _, binary := range []string{t.cfg.FFmpegBinary(), t.cfg.FFprobeBinary()} {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(name, fmt.Sprintf("binary %q not found", binary))
		}
	}
	return stage.Healthy(name)
}

func deriveOutputName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "video"
	}
	return stem + ".mp4"
}

func progressMessage(update Update) string {
	if update.Finished {
		return "Transcode finishing"
	}
	if update.Percent < 0 {
		if update.OutTime > 0 {
			return fmt.Sprintf("Transcoding (%s processed)", update.OutTime.Round(time.Second))
		}
		return ""
	}
	if update.Speed != "" {
		return fmt.Sprintf("Transcoding %.0f%% (%s)", update.Percent, update.Speed)
	}
	return fmt.Sprintf("Transcoding %.0f%%", update.Percent)
}

func commandLine(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, binary)
	for _, arg := range args {
		if strings.ContainsAny(arg, " \t") {
			parts = append(parts, fmt.Sprintf("%q", arg))
		} else {
			parts = append(parts, arg)
		}
	}
	return strings.Join(parts, " ")
}
