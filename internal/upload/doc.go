// Package upload runs the storage publishing stage for queue jobs.
//
// It derives the public filename from the job caption, uploads the encoded
// artifact through the configured storage backend, and records the job output
// row the API serves. Storage failures are terminal; this is the one stage
// whose errors are never absorbed into a degraded result.
package upload
