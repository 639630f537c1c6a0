// Package server provides the runtime plumbing shared by the long-running
// commands.
//
// # Key Components
//
// ServerContext carries the calendar gateway, the user's timezone and the
// instrumentation handles that MCP tool handlers need. It is created once by
// the serve command and cancelled on shutdown.
//
// MetricsServer exposes the Prometheus /metrics endpoint on a dedicated
// address, together with the HealthChecker's /healthz and /readyz probes.
// Both chat and serve start it when --metrics-addr is set.
package server
