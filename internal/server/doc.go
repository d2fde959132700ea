// Package server exposes the daemon's HTTP API.
//
// The gin engine serves job submission and inspection, queue stats, daemon
// status, the TikTok OAuth connect/callback pair, and connected-account
// listing. Submission only persists the job; the workflow manager picks it up
// from the queue, so POST /jobs returns as soon as the row is durable. All
// business routes sit behind the x-api-key check; /health and the OAuth
// browser flow do not.
package server
