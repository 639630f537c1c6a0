// Package logging provides structured logging utilities for claude-meet.
//
// All diagnostics go through the standard library's slog package. The terminal
// front-end owns stdout, so loggers built here always write to stderr.
//
// # Usage Patterns
//
// Build the process logger once at startup:
//
//	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.Debug)
//	slog.SetDefault(logger)
//
// Tag a component and log with consistent attribute names:
//
//	log := logging.WithOperation(logger, "calendar.create")
//	log.Info("event created", logging.EventID(ev.ID), logging.Status(logging.StatusSuccess))
//
// # Security Considerations
//
//   - Attendee emails are hashed with UserHash before they reach a log line
//   - Tokens and API keys are never logged directly; use SanitizeToken
package logging
