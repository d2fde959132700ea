package social

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"reelpress/internal/config"
	"reelpress/internal/logging"
	"reelpress/internal/queue"
	"reelpress/internal/services"
	"reelpress/internal/services/tiktok"
	"reelpress/internal/stage"
)

// PublishClient is the surface of the TikTok client the stage uses.
type PublishClient interface {
	Configured() bool
	PublishFromURL(ctx context.Context, accessToken, videoURL, title string) (string, error)
}

// TokenSource hands out fresh access tokens for stored accounts.
type TokenSource interface {
	FreshAccessToken(ctx context.Context, account *queue.Account) (string, error)
}

// Publisher fans a finished artifact out to the requested TikTok accounts.
// Runs inside the "uploading" state after the storage publish.
type Publisher struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	client PublishClient
	tokens TokenSource
}

// NewPublisher constructs the social publish stage with a real TikTok
// client and token manager.
func NewPublisher(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Publisher {
	client := tiktok.NewClient(cfg.TikTok)
	tokens := tiktok.NewTokenManager(cfg, client, store, logger)
	return NewPublisherWithClient(cfg, store, logger, client, tokens)
}

// NewPublisherWithClient allows injecting the client and token source (used
// in tests).
func NewPublisherWithClient(cfg *config.Config, store *queue.Store, logger *slog.Logger, client PublishClient, tokens TokenSource) *Publisher {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "social"))
	}
	return &Publisher{store: store, cfg: cfg, logger: stageLogger, client: client, tokens: tokens}
}

func (p *Publisher) Prepare(ctx context.Context, job *queue.Job) error {
	if !publishRequested(job) || p.client == nil || !p.client.Configured() {
		return nil
	}
	job.SetProgress("Uploading", "Publishing to TikTok accounts", 100)
	return nil
}

func (p *Publisher) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, p.logger)

	if !publishRequested(job) {
		logger.Debug("publish not requested; skipping")
		return nil
	}
	if p.client == nil || !p.client.Configured() {
		logger.Info(
			"tiktok publishing not configured; skipping requested publish",
			logging.Int("account_count", len(job.AccountIDs)),
		)
		return nil
	}

	stageStart := time.Now()
	outputs, err := p.store.OutputsForJob(ctx, job.ID)
	if err != nil {
		return services.Wrap(
			services.ErrTransient,
			"social",
			"load outputs",
			"Failed to load the job output for publishing",
			err,
		)
	}
	if len(outputs) == 0 || outputs[0].VideoURL == "" {
		return services.Wrap(
			services.ErrValidation,
			"social",
			"resolve artifact",
			"Job reached publishing without a stored output URL",
			nil,
		)
	}
	videoURL := outputs[0].VideoURL
	title := publishTitle(job)

	results := make([]queue.PublishResult, 0, len(job.AccountIDs))
	succeeded := 0
	for _, accountID := range job.AccountIDs {
		result := p.publishToAccount(ctx, logger, accountID, videoURL, title)
		if result.PublishID != "" {
			succeeded++
		}
		results = append(results, result)
	}

	if err := p.store.SetPublishResults(ctx, job.ID, 0, results); err != nil {
		// The publish calls already went out; failing the job here would
		// discard a finished upload over a bookkeeping write. Keep the job
		// alive and flag the output instead.
		logger.Error("failed to record per-account publish results", logging.Error(err))
		job.SetDegraded("publish results could not be recorded")
	} else {
		p.recordPublishEvents(ctx, logger, job.ID, results)
	}

	job.SetProgress("Uploading", "Publish results recorded", 100)
	logger.Info(
		"social stage summary",
		logging.Int("accounts_requested", len(job.AccountIDs)),
		logging.Int("accounts_published", succeeded),
		logging.Int("accounts_failed", len(results)-succeeded),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return nil
}

// recordPublishEvents appends one audit event per account outcome. The results
// are already persisted, so recording failures are log-worthy only.
func (p *Publisher) recordPublishEvents(ctx context.Context, logger *slog.Logger, jobID string, results []queue.PublishResult) {
	for _, result := range results {
		eventType := queue.EventPublished
		message := "Published to " + accountLabel(result)
		payload := map[string]any{"open_id": result.OpenID, "publish_id": result.PublishID}
		if result.Error != "" {
			eventType = queue.EventPublishFailed
			message = "Publish to " + accountLabel(result) + " failed: " + result.Error
			payload = map[string]any{"open_id": result.OpenID, "error": result.Error}
		}
		if err := p.store.RecordEvent(ctx, jobID, eventType, message, payload); err != nil {
			logger.Warn("failed to record publish event", logging.String("open_id", result.OpenID), logging.Error(err))
		}
	}
}

func accountLabel(result queue.PublishResult) string {
	if result.DisplayName != "" {
		return result.DisplayName
	}
	return result.OpenID
}

// publishToAccount resolves one account and submits the publish. Failures
// come back inside the result, never as an error.
func (p *Publisher) publishToAccount(ctx context.Context, logger *slog.Logger, accountID, videoURL, title string) queue.PublishResult {
	result := queue.PublishResult{OpenID: accountID}

	account, err := p.store.GetAccount(ctx, accountID)
	if err != nil {
		result.Error = "account lookup failed"
		logger.Warn("account lookup failed", logging.String("open_id", accountID), logging.Error(err))
		return result
	}
	if account == nil {
		result.Error = "account not connected"
		logger.Warn("publish requested for unknown account", logging.String("open_id", accountID))
		return result
	}
	result.DisplayName = account.DisplayName

	token, err := p.tokens.FreshAccessToken(ctx, account)
	if err != nil {
		if errors.Is(err, tiktok.ErrReauthorizationRequired) {
			result.Error = "reauthentication required"
		} else {
			result.Error = err.Error()
		}
		logger.Warn("token refresh failed", logging.String("open_id", accountID), logging.Error(err))
		return result
	}

	publishID, err := p.client.PublishFromURL(ctx, token, videoURL, title)
	if err != nil {
		result.Error = err.Error()
		logger.Warn("publish rejected", logging.String("open_id", accountID), logging.Error(err))
		return result
	}
	result.PublishID = publishID
	logger.Info("publish accepted", logging.String("open_id", accountID), logging.String("publish_id", publishID))
	return result
}

// HealthCheck verifies credentials are present when publishing is enabled.
func (p *Publisher) HealthCheck(ctx context.Context) stage.Health {
	const name = "social"
	if p.cfg == nil || !p.cfg.TikTok.Enabled {
		return stage.Healthy(name)
	}
	if p.client == nil || !p.client.Configured() {
		return stage.Unhealthy(name, "tiktok client credentials missing")
	}
	return stage.Healthy(name)
}

func publishRequested(job *queue.Job) bool {
	return job.PublishRequested && len(job.AccountIDs) > 0
}

// publishTitle composes the post title from the caption with the job's
// hashtags appended in #tag form.
func publishTitle(job *queue.Job) string {
	parts := make([]string, 0, 1+len(job.Hashtags))
	if caption := strings.TrimSpace(job.Caption); caption != "" {
		parts = append(parts, caption)
	}
	for _, tag := range job.Hashtags {
		tag = strings.TrimSpace(strings.TrimPrefix(tag, "#"))
		if tag == "" {
			continue
		}
		parts = append(parts, "#"+tag)
	}
	return strings.Join(parts, " ")
}
