// Package notifications delivers workflow events via pluggable notifiers.
//
// The default implementation posts JSON envelopes to the webhook configured in
// config.toml and gracefully degrades to a no-op when no webhook URL is set.
// Enumerated event types cover the pipeline's terminal milestones so workflow
// code can emit consistent payloads without duplicating HTTP glue. Delivery is
// best effort: transient failures are retried with backoff up to the
// configured attempt limit and the final error is left to the caller to log.
//
// Extend this package if you need alternative transports; all workflow code
// depends only on the simple Service interface.
package notifications
