// Package instrumentation provides OpenTelemetry metrics and tracing for
// claude-meet.
//
// # Metrics
//
// Calendar API:
//   - calendar_api_operations_total: Counter of gateway operations by operation and status
//   - calendar_api_operation_duration_seconds: Histogram of gateway operation durations
//
// Anthropic Messages API:
//   - llm_requests_total: Counter of requests by status (and model with detailed labels)
//   - llm_request_duration_seconds: Histogram of request durations
//   - llm_tokens_total: Counter of input and output tokens
//
// Tools:
//   - tool_invocations_total: Counter of calendar tool invocations by tool and status
//   - tool_duration_seconds: Histogram of tool durations
//
// OAuth:
//   - oauth_auth_total: Counter of consent flows by result
//   - oauth_token_refresh_total: Counter of token refreshes by result
//
// Conversation:
//   - conversation_turns_total, conversation_turn_duration_seconds
//   - conversation_turn_tool_rounds: Histogram of tool round-trips per turn
//   - chat_active_sessions: Gauge of running chat sessions
//
// # Tracing
//
// Spans are created for each conversation turn (assistant.turn), each
// Messages API request (anthropic.messages.new), each tool invocation
// (tool.<name>) and each Calendar API call (google.calendar.<operation>).
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: claude-meet)
//
// Prometheus metrics are only reachable when a metrics server is started
// (chat --metrics-addr, serve --metrics-addr).
package instrumentation
