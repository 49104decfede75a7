// Package logging provides structured logging helpers built on log/slog.
//
// It defines the canonical attribute keys used across the codebase and
// helpers that keep sensitive values (passwords, tokens, user identifiers)
// out of log output.
package logging
