package transcode

import (
	"fmt"
	"strconv"
	"strings"

	"reelpress/internal/config"
	"reelpress/internal/media/ffprobe"
)

const (
	canvasWidth  = 1080
	canvasHeight = 1920
)

// Audio handling chosen for a plan. Exactly one applies per encode.
const (
	audioModeAAC  = "aac"
	audioModeCopy = "copy"
	audioModeNone = "none"
)

// Plan is a fully resolved FFmpeg invocation for one source file.
type Plan struct {
	Args        []string
	FilterGraph string
	AudioMode   string
}

// buildEncodePlan assembles the vertical encode arguments. The filter graph
// is fixed per deployment; only the jitter block and audio handling vary with
// configuration and the probed source.
func buildEncodePlan(cfg *config.Config, source, output string, probe ffprobe.Result) Plan {
	filters := make([]string, 0, 6)
	if cfg.Transcode.Jitter {
		// Symmetric crop then off-center re-pad shifts the frame by a couple
		// of pixels before scaling; hue, grain, and a sub-percent timestamp
		// stretch keep the output from matching the source frame-for-frame.
		filters = append(filters,
			"crop=iw-8:ih-8:4:4",
			"pad=iw+8:ih+8:6:2",
		)
	}
	filters = append(filters,
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", canvasWidth, canvasHeight),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", canvasWidth, canvasHeight),
	)
	if cfg.Transcode.Jitter {
		filters = append(filters,
			"hue=h=1.2",
			"noise=alls=5:allf=t",
			"setpts=PTS*1.004",
		)
	}
	graph := strings.Join(filters, ",")

	audioMode := audioModeNone
	if probe.HasAudio() {
		if strings.EqualFold(strings.TrimSpace(cfg.Transcode.AudioPolicy), audioModeCopy) {
			audioMode = audioModeCopy
		} else {
			audioMode = audioModeAAC
		}
	}

	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", source,
		"-vf", graph,
		"-c:v", "libx264",
		"-crf", strconv.Itoa(cfg.Transcode.CRF),
		"-preset", strings.TrimSpace(cfg.Transcode.Preset),
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
	}
	switch audioMode {
	case audioModeCopy:
		args = append(args, "-c:a", "copy")
	case audioModeAAC:
		args = append(args, "-c:a", "aac", "-b:a", "128k")
	default:
		args = append(args, "-an")
	}
	args = append(args, "-progress", "pipe:1", "-nostats", output)

	return Plan{Args: args, FilterGraph: graph, AudioMode: audioMode}
}

// buildRemuxPlan rewraps the source container without touching the streams.
func buildRemuxPlan(source, output string) Plan {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", source,
		"-c", "copy",
		"-movflags", "+faststart",
		"-progress", "pipe:1", "-nostats",
		output,
	}
	return Plan{Args: args, AudioMode: audioModeCopy}
}
