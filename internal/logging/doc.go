// Package logging assembles structured slog loggers and formatting helpers used
// by every robot role.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so robot code can automatically
// tag log lines with roles, item IDs, and correlation IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
