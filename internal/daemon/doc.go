// Package daemon coordinates the long-running reelpress services: the
// workflow manager that drives jobs through their stages and the HTTP
// server that accepts new work. A file lock in the data directory
// enforces single-instance execution.
package daemon
