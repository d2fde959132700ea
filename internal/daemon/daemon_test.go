package daemon_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"reelpress/internal/config"
	"reelpress/internal/daemon"
	"reelpress/internal/logging"
	"reelpress/internal/queue"
	"reelpress/internal/server"
	"reelpress/internal/stage"
	"reelpress/internal/testsupport"
	"reelpress/internal/workflow"
)

type passHandler struct{ name string }

func (h passHandler) Prepare(context.Context, *queue.Job) error { return nil }

func (h passHandler) Execute(context.Context, *queue.Job) error { return nil }

func (h passHandler) HealthCheck(context.Context) stage.Health { return stage.Healthy(h.name) }

func newTestDaemon(t *testing.T, cfg *config.Config, store *queue.Store) *daemon.Daemon {
	t.Helper()

	logger := logging.NewNop()

	manager := workflow.NewManager(cfg, store, logger)
	manager.ConfigureStages(workflow.StageSet{
		Fetch:     passHandler{name: "fetch"},
		Transcode: passHandler{name: "transcode"},
		Upload:    passHandler{name: "upload"},
	})

	srv := server.New(cfg, store, manager, logger)
	d, err := daemon.New(cfg, store, logger, manager, srv)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestDaemonStartServesAPIAndStops(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newTestDaemon(t, cfg, store)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	st := d.Status(ctx)
	if !st.Running {
		t.Fatal("expected daemon to report running")
	}
	if st.ListenAddr == "" {
		t.Fatal("expected listen address after start")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + st.ListenAddr + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d, want 200", resp.StatusCode)
	}

	d.Stop()
	after := d.Status(ctx)
	if after.Running {
		t.Fatal("expected daemon stopped")
	}
}

func TestDaemonRejectsSecondStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newTestDaemon(t, cfg, store)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

func TestDaemonLockBlocksSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newTestDaemon(t, cfg, store)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	second := newTestDaemon(t, cfg, store)
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected lock contention error")
	}
}
