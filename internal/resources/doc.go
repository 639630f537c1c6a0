// Package resources provides MCP resources for exposing calendar data.
// Resources are read-only data sources that MCP clients can fetch; here they
// describe the connected calendar and the scheduling settings the tools apply,
// so a client can interpret local times and defaults before calling a tool.
package resources
