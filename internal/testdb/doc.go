// Package testdb provides helpers for integration tests that need a real
// PostgreSQL database. Tests using it are skipped when no database URL is
// configured, so the default `go test ./...` run stays hermetic.
package testdb
