package social_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"reelpress/internal/config"
	"reelpress/internal/logging"
	"reelpress/internal/queue"
	"reelpress/internal/services"
	"reelpress/internal/services/tiktok"
	"reelpress/internal/social"
	"reelpress/internal/testsupport"
)

type publishCall struct {
	token    string
	videoURL string
	title    string
}

type stubPublishClient struct {
	configured bool
	calls      []publishCall
	respond    func(token string) (string, error)
}

func (s *stubPublishClient) Configured() bool { return s.configured }

func (s *stubPublishClient) PublishFromURL(ctx context.Context, accessToken, videoURL, title string) (string, error) {
	s.calls = append(s.calls, publishCall{token: accessToken, videoURL: videoURL, title: title})
	if s.respond != nil {
		return s.respond(accessToken)
	}
	return "v_inbox." + accessToken, nil
}

type stubTokenSource struct {
	errs map[string]error
}

func (s *stubTokenSource) FreshAccessToken(ctx context.Context, account *queue.Account) (string, error) {
	if err := s.errs[account.OpenID]; err != nil {
		return "", err
	}
	return "tok-" + account.OpenID, nil
}

func publisherConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.TikTok.Enabled = true
	cfg.TikTok.ClientKey = "ck_demo"
	cfg.TikTok.ClientSecret = "cs_demo"
	cfg.TikTok.RedirectURI = "https://app.example.com/auth/tiktok/callback"
	return cfg
}

func connectAccount(t *testing.T, store *queue.Store, openID, displayName string) {
	t.Helper()

	err := store.UpsertAccount(context.Background(), &queue.Account{
		OpenID:       openID,
		DisplayName:  displayName,
		AccessToken:  "act." + openID,
		RefreshToken: "rft." + openID,
		ExpiresAt:    time.Now().Add(12 * time.Hour),
	})
	if err != nil {
		t.Fatalf("UpsertAccount: %v", err)
	}
}

func newPublishJob(t *testing.T, store *queue.Store, accountIDs ...string) *queue.Job {
	t.Helper()

	job, err := store.NewJob(context.Background(), queue.NewJobParams{
		SourceKind:       queue.SourceKindURL,
		SourceURL:        "https://videos.example.com/source.mp4",
		Caption:          "Morning surf",
		Hashtags:         []string{"fyp", "surf"},
		PublishRequested: len(accountIDs) > 0,
		AccountIDs:       accountIDs,
		InputJSON:        `{"source_video_url":"https://videos.example.com/source.mp4"}`,
	})
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	if err := store.SetOutputs(context.Background(), job.ID, []queue.OutputParams{{
		VideoURL:   "http://media.test/outputs/jobs/" + job.ID + "/morning_surf.mp4",
		StorageKey: "jobs/" + job.ID + "/morning_surf.mp4",
		Caption:    job.Caption,
		Hashtags:   job.Hashtags,
	}}); err != nil {
		t.Fatalf("SetOutputs: %v", err)
	}
	return job
}

func TestPublisherRecordsPerAccountResults(t *testing.T) {
	cfg := publisherConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	connectAccount(t, store, "open-1", "Creator One")
	connectAccount(t, store, "open-2", "Creator Two")
	job := newPublishJob(t, store, "open-1", "open-2")

	client := &stubPublishClient{
		configured: true,
		respond: func(token string) (string, error) {
			if token == "tok-open-2" {
				return "", errors.New("tiktok api error spam_risk_too_many_posts")
			}
			return "v_inbox.7340", nil
		},
	}
	publisher := social.NewPublisherWithClient(cfg, store, logging.NewNop(), client, &stubTokenSource{})

	if err := publisher.Prepare(context.Background(), job); err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	if err := publisher.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if len(client.calls) != 2 {
		t.Fatalf("expected 2 publish calls, got %d", len(client.calls))
	}
	if client.calls[0].title != "Morning surf #fyp #surf" {
		t.Fatalf("unexpected title %q", client.calls[0].title)
	}
	if !strings.Contains(client.calls[0].videoURL, job.ID) {
		t.Fatalf("expected the stored output url, got %q", client.calls[0].videoURL)
	}

	outputs, err := store.OutputsForJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("OutputsForJob: %v", err)
	}
	if len(outputs) != 1 || len(outputs[0].Publishes) != 2 {
		t.Fatalf("expected one output with 2 publish results, got %+v", outputs)
	}
	first, second := outputs[0].Publishes[0], outputs[0].Publishes[1]
	if first.OpenID != "open-1" || first.PublishID != "v_inbox.7340" || first.Error != "" {
		t.Fatalf("unexpected first result %+v", first)
	}
	if first.DisplayName != "Creator One" {
		t.Fatalf("expected display name recorded, got %q", first.DisplayName)
	}
	if second.OpenID != "open-2" || second.PublishID != "" || !strings.Contains(second.Error, "spam_risk") {
		t.Fatalf("unexpected second result %+v", second)
	}
}

func TestPublisherDegradesWhenResultsCannotBeRecorded(t *testing.T) {
	cfg := publisherConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	connectAccount(t, store, "open-1", "Creator One")
	job := newPublishJob(t, store, "open-1")

	// The output row disappears between the publish call and the results
	// write, so SetPublishResults has nothing to update.
	client := &stubPublishClient{
		configured: true,
		respond: func(token string) (string, error) {
			if err := store.SetOutputs(context.Background(), job.ID, nil); err != nil {
				t.Fatalf("SetOutputs: %v", err)
			}
			return "v_inbox.7340", nil
		},
	}
	publisher := social.NewPublisherWithClient(cfg, store, logging.NewNop(), client, &stubTokenSource{})

	if err := publisher.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute should not fail the job over a bookkeeping write, got %v", err)
	}
	if !job.Degraded {
		t.Fatal("expected job flagged degraded")
	}
	if !strings.Contains(job.DegradedReason, "publish results") {
		t.Fatalf("unexpected degraded reason %q", job.DegradedReason)
	}
}

func TestPublisherSkipsWhenNotRequested(t *testing.T) {
	cfg := publisherConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := newPublishJob(t, store)

	client := &stubPublishClient{configured: true}
	publisher := social.NewPublisherWithClient(cfg, store, logging.NewNop(), client, &stubTokenSource{})

	if err := publisher.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(client.calls) != 0 {
		t.Fatalf("expected no publish calls, got %d", len(client.calls))
	}
	outputs, err := store.OutputsForJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("OutputsForJob: %v", err)
	}
	if len(outputs[0].Publishes) != 0 {
		t.Fatalf("expected no publish results, got %+v", outputs[0].Publishes)
	}
}

func TestPublisherSkipsWhenUnconfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	connectAccount(t, store, "open-1", "Creator One")
	job := newPublishJob(t, store, "open-1")

	client := &stubPublishClient{configured: false}
	publisher := social.NewPublisherWithClient(cfg, store, logging.NewNop(), client, &stubTokenSource{})

	if err := publisher.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(client.calls) != 0 {
		t.Fatalf("expected no publish calls, got %d", len(client.calls))
	}
}

func TestPublisherIsolatesUnknownAccount(t *testing.T) {
	cfg := publisherConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	connectAccount(t, store, "open-2", "Creator Two")
	job := newPublishJob(t, store, "ghost", "open-2")

	client := &stubPublishClient{configured: true}
	publisher := social.NewPublisherWithClient(cfg, store, logging.NewNop(), client, &stubTokenSource{})

	if err := publisher.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected one publish call for the connected account, got %d", len(client.calls))
	}

	outputs, err := store.OutputsForJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("OutputsForJob: %v", err)
	}
	results := outputs[0].Publishes
	if results[0].OpenID != "ghost" || results[0].Error != "account not connected" {
		t.Fatalf("unexpected result for unknown account: %+v", results[0])
	}
	if results[1].OpenID != "open-2" || results[1].PublishID == "" {
		t.Fatalf("expected connected account published, got %+v", results[1])
	}
}

func TestPublisherMarksReauthenticationRequired(t *testing.T) {
	cfg := publisherConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	connectAccount(t, store, "open-1", "Creator One")
	job := newPublishJob(t, store, "open-1")

	client := &stubPublishClient{configured: true}
	tokens := &stubTokenSource{errs: map[string]error{"open-1": tiktok.ErrReauthorizationRequired}}
	publisher := social.NewPublisherWithClient(cfg, store, logging.NewNop(), client, tokens)

	if err := publisher.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if len(client.calls) != 0 {
		t.Fatalf("expected no publish calls without a token, got %d", len(client.calls))
	}

	outputs, err := store.OutputsForJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("OutputsForJob: %v", err)
	}
	if got := outputs[0].Publishes[0].Error; got != "reauthentication required" {
		t.Fatalf("unexpected result error %q", got)
	}
}

func TestPublisherFailsWithoutStoredOutput(t *testing.T) {
	cfg := publisherConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	connectAccount(t, store, "open-1", "Creator One")

	job, err := store.NewJob(context.Background(), queue.NewJobParams{
		SourceKind:       queue.SourceKindURL,
		SourceURL:        "https://videos.example.com/source.mp4",
		PublishRequested: true,
		AccountIDs:       []string{"open-1"},
		InputJSON:        `{"source_video_url":"https://videos.example.com/source.mp4"}`,
	})
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}

	client := &stubPublishClient{configured: true}
	publisher := social.NewPublisherWithClient(cfg, store, logging.NewNop(), client, &stubTokenSource{})

	err = publisher.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPublisherHealthCheck(t *testing.T) {
	cfg := publisherConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ready := social.NewPublisherWithClient(cfg, store, logging.NewNop(), &stubPublishClient{configured: true}, &stubTokenSource{})
	if health := ready.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy stage, got %+v", health)
	}

	missing := social.NewPublisherWithClient(cfg, store, logging.NewNop(), &stubPublishClient{configured: false}, &stubTokenSource{})
	if health := missing.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy stage without credentials")
	}

	disabledCfg := testsupport.NewConfig(t)
	disabled := social.NewPublisherWithClient(disabledCfg, store, logging.NewNop(), &stubPublishClient{configured: false}, &stubTokenSource{})
	if health := disabled.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected disabled publishing to report healthy, got %+v", health)
	}
}
