// Package workflow advances jobs through the processing pipeline.
//
// The Manager runs a pool of workers that atomically claim queued jobs and
// carry each one through the registered stage handlers (fetch, transcode,
// upload, publish) while persisting progress and failure detail. Status moves
// strictly forward (queued, downloading, processing, uploading, completed)
// with failed reachable from any in-flight state; the claim itself is a
// single conditional UPDATE, so two workers never own the same job. Transcode
// concurrency is capped separately from worker count so several downloads and
// uploads can overlap one FFmpeg run.
//
// Startup fails over jobs stranded in flight by a previous process, and
// shutdown fails whatever the cancelled workers were holding; a job is never
// resumed mid-stage. The manager also aggregates queue stats, calls stage
// health checks, and publishes terminal job notifications.
package workflow
