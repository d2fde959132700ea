package deps

import (
	"os/exec"
	"strings"
)

// ResolveFFmpegPath resolves the ffmpeg binary the transcoder will execute.
// A configured name that resolves from PATH wins; otherwise the name comes
// back unchanged so callers surface the failure when they run it.
func ResolveFFmpegPath(configured string) string {
	return resolveBinary(configured, "ffmpeg")
}

// ResolveFFprobePath resolves the ffprobe binary used for media inspection.
func ResolveFFprobePath(configured string) string {
	return resolveBinary(configured, "ffprobe")
}

func resolveBinary(configured, fallback string) string {
	name := strings.TrimSpace(configured)
	if name == "" {
		name = fallback
	}
	if resolved, err := exec.LookPath(name); err == nil {
		return resolved
	}
	return name
}
