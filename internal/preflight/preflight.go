package preflight

import (
	"context"
	"strings"

	"reelpress/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	if strings.EqualFold(cfg.Storage.Backend, config.StorageBackendLocal) {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Storage.LocalDir))
	}

	results = append(results, CheckStorage(ctx, cfg))

	if cfg.TikTok.Enabled {
		results = append(results, CheckTikTokConfig(cfg))
	}

	return results
}

// FailedDetails returns the detail lines of all failed checks.
func FailedDetails(results []Result) []string {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r.Name+": "+r.Detail)
		}
	}
	return failed
}
