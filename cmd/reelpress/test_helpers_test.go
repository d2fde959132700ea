package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reelpress/internal/config"
	"reelpress/internal/logging"
	"reelpress/internal/queue"
	"reelpress/internal/server"
	"reelpress/internal/stage"
	"reelpress/internal/testsupport"
	"reelpress/internal/workflow"
)

type noopStage struct{}

func (noopStage) Prepare(context.Context, *queue.Job) error { return nil }
func (noopStage) Execute(context.Context, *queue.Job) error { return nil }
func (noopStage) HealthCheck(context.Context) stage.Health  { return stage.Healthy("noop") }

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	address    string
	configPath string
}

// setupCLITestEnv writes a config file, opens a queue store, and starts an
// API server bound to an ephemeral port for CLI commands to talk to.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	manager := workflow.NewManager(cfg, store, logger)
	manager.ConfigureStages(workflow.StageSet{
		Fetch:     noopStage{},
		Transcode: noopStage{},
		Upload:    noopStage{},
	})

	srv := server.New(cfg, store, manager, logger)
	if err := srv.Start(); err != nil {
		t.Fatalf("server.Start: %v", err)
	}
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(configPath, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		address:    srv.Addr(),
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, env *cliTestEnv) (string, error) {
	t.Helper()

	full := append([]string{}, args...)
	full = append(full, "--config", env.configPath, "--address", env.address)

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(full)

	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}
