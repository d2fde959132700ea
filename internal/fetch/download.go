package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"reelpress/internal/queue"
	"reelpress/internal/services"
)

// downloadSource streams the job's source URL into staging. The transfer runs
// under fetch.download_timeout and is capped at fetch.max_download_bytes.
func (f *Fetcher) downloadSource(ctx context.Context, job *queue.Job) (string, int64, error) {
	timeout := time.Duration(f.cfg.Fetch.DownloadTimeout) * time.Second
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.SourceURL, nil)
	if err != nil {
		return "", 0, services.Wrap(
			services.ErrValidation, "fetch", "build request",
			fmt.Sprintf("Invalid source URL %q", job.SourceURL), err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", 0, services.Wrap(
				services.ErrTimeout, "fetch", "download source",
				fmt.Sprintf("Download did not finish within %s", timeout), err)
		}
		return "", 0, services.Wrap(
			services.ErrTransient, "fetch", "download source",
			"Failed to reach the source URL", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, services.Wrap(
			services.ErrTransient, "fetch", "download source",
			fmt.Sprintf("Source returned HTTP %d", resp.StatusCode), nil)
	}

	tmp, err := os.CreateTemp(StagingDir(f.cfg, job.ID), "source-*.mp4")
	if err != nil {
		return "", 0, services.Wrap(
			services.ErrConfiguration, "fetch", "create staging file",
			"Failed to create a staging file; check paths.staging_dir permissions", err)
	}
	path := tmp.Name()

	maxBytes := f.cfg.Fetch.MaxDownloadBytes
	written, copyErr := io.Copy(tmp, io.LimitReader(resp.Body, maxBytes+1))
	closeErr := tmp.Close()

	if copyErr != nil {
		_ = os.Remove(path)
		if errors.Is(copyErr, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", 0, services.Wrap(
				services.ErrTimeout, "fetch", "download source",
				fmt.Sprintf("Download did not finish within %s", timeout), copyErr)
		}
		return "", 0, services.Wrap(
			services.ErrTransient, "fetch", "download source",
			"Source transfer was interrupted", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(path)
		return "", 0, services.Wrap(
			services.ErrTransient, "fetch", "write staging file",
			"Failed to flush the staged download", closeErr)
	}
	if written > maxBytes {
		_ = os.Remove(path)
		return "", 0, services.Wrap(
			services.ErrValidation, "fetch", "download source",
			fmt.Sprintf("Source exceeds the %d byte download limit", maxBytes), nil)
	}
	if min := f.cfg.Fetch.MinSourceBytes; min > 0 && written < min {
		_ = os.Remove(path)
		return "", 0, services.Wrap(
			services.ErrValidation, "fetch", "download source",
			fmt.Sprintf("Source is %d bytes, below the %d byte minimum", written, min), nil)
	}
	return path, written, nil
}
