// Package queue persists video jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema migrations, stats queries,
// interrupted-job recovery, and status transitions that mirror the public
// job state enum. Jobs capture progress, source material, transcode results,
// and publish outcomes so pipeline stages can coordinate without additional
// state. Output artifacts and audit events live in their own tables keyed by
// job ID, and connected TikTok accounts share the same database.
//
// Status changes are forward-only: transitions go through Transition,
// ClaimNextQueued, or the Mark helpers, all of which reject moves backward
// or out of a terminal state. Read paths return (nil, nil) for missing rows;
// mutation paths return the sentinel errors from errors.go.
//
// Schema changes add a new numbered file under migrations/; applied versions
// are tracked in the schema_migrations table.
package queue
