// Package preflight runs startup readiness checks shared by the daemon and
// the CLI status command: directory access, external binaries, storage
// backend reachability, and TikTok credential completeness.
package preflight
