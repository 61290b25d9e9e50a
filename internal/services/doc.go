// Package services defines shared utilities consumed by the organizer engine
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, group keys, and move job identifiers
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that let callers tell
//     transport failures apart from validation and configuration problems.
//
// Use these helpers when wiring new integrations so operational behaviour
// (error handling, observability) stays uniform across the tool.
package services
