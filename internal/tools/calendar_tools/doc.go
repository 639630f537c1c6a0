// Package calendar_tools exposes the calendar gateway as MCP (Model Context
// Protocol) tools, so that MCP clients can list events, check availability,
// find free slots and create meetings with the same operations the chat
// assistant uses.
//
// Times in arguments are RFC3339 or zone-less local times, interpreted in the
// server's configured timezone.
package calendar_tools
