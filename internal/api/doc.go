// Package api defines the wire types served by the daemon's HTTP API and a
// client for consuming them. The server in internal/server renders these
// types; the reelpress CLI talks to a running daemon exclusively through the
// Client so both sides agree on one payload shape.
package api
