package fetch

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"reelpress/internal/config"
	"reelpress/internal/services"
)

// DecodeSource decodes a base64 video payload. Data URI prefixes are
// stripped, embedded whitespace is tolerated, and both the standard and
// URL-safe alphabets are tried, padded variants first.
func DecodeSource(payload string) ([]byte, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil, errors.New("empty base64 payload")
	}
	if strings.HasPrefix(trimmed, "data:") {
		if idx := strings.Index(trimmed, ","); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', ' ':
			return -1
		}
		return r
	}, trimmed)

	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if data, err := enc.DecodeString(trimmed); err == nil {
			return data, nil
		}
	}
	return nil, errors.New("payload is not valid base64")
}

// StageBase64Source decodes payload into the job's staging directory and
// enforces the minimum decoded size. Called at submission time so the raw
// base64 body never reaches the database.
func StageBase64Source(cfg *config.Config, jobID, payload string) (string, int64, error) {
	data, err := DecodeSource(payload)
	if err != nil {
		return "", 0, services.Wrap(
			services.ErrValidation, "fetch", "decode base64",
			"Request carried an undecodable source_video_base64 payload", err)
	}
	if min := cfg.Fetch.MinSourceBytes; min > 0 && int64(len(data)) < min {
		return "", 0, services.Wrap(
			services.ErrValidation, "fetch", "decode base64",
			fmt.Sprintf("Decoded source is %d bytes, below the %d byte minimum", len(data), min), nil)
	}

	dir := StagingDir(cfg, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, services.Wrap(
			services.ErrConfiguration, "fetch", "ensure staging dir",
			"Failed to create job staging directory; set paths.staging_dir to a writable location", err)
	}
	tmp, err := os.CreateTemp(dir, "source-*.mp4")
	if err != nil {
		return "", 0, services.Wrap(
			services.ErrConfiguration, "fetch", "create staging file",
			"Failed to create a staging file; check paths.staging_dir permissions", err)
	}
	path := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(path)
		return "", 0, services.Wrap(
			services.ErrTransient, "fetch", "write staging file",
			"Failed to write the decoded source into staging", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(path)
		return "", 0, services.Wrap(
			services.ErrTransient, "fetch", "write staging file",
			"Failed to flush the decoded source", err)
	}
	return path, int64(len(data)), nil
}
