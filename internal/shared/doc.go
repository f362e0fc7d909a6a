// Package shared holds helpers used by more than one package.
//
// The testutil subpackage builds election fixtures for tests: fixed-width
// party and results lines, zip archives with nested members, and a slog
// handler that captures records for assertions.
package shared
