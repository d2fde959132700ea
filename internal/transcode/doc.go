// Package transcode runs the FFmpeg-based processing stage for queue jobs.
//
// It probes the staged source, builds the vertical 1080x1920 encode plan,
// drives FFmpeg while persisting progress callbacks, and records the final
// artifact path for the upload stage. When the encode fails the handler falls
// back to a remux or byte copy per the configured policy and marks the job
// degraded instead of failing it.
//
// Subprocess execution goes through the Executor interface so tests can
// substitute a fake FFmpeg.
package transcode
