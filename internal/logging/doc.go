// Package logging assembles structured slog loggers used across camroll.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so engine code automatically
// tags log lines with run IDs, group keys, and move job identifiers. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
