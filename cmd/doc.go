// Package cmd implements the command-line interface for claude-meet.
//
// This package provides the following commands:
//   - chat: Interactive scheduling session with Claude
//   - schedule: Send a single request and print the reply
//   - auth / logout: Connect or disconnect Google Calendar
//   - upcoming: List the next events
//   - setup: Save the timezone
//   - config: Show the resolved settings
//   - serve: Start the MCP server exposing the calendar tools over stdio
//   - generate-docs: Generate markdown documentation for the MCP tools
//   - version: Display version information
//
// Every command accepts --debug, which enables debug logging and prints the
// full chain of wrapped errors on failure.
package cmd
