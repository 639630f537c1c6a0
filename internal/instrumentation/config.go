package instrumentation

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Environment variables read by DefaultConfig.
const (
	EnvServiceName       = "OTEL_SERVICE_NAME"
	EnvServiceInstanceID = "OTEL_SERVICE_INSTANCE_ID"
	EnvEnabled           = "INSTRUMENTATION_ENABLED"
	EnvMetricsExporter   = "METRICS_EXPORTER"
	EnvTracingExporter   = "TRACING_EXPORTER"
	EnvOTLPEndpoint      = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvOTLPInsecure      = "OTEL_EXPORTER_OTLP_INSECURE"
	EnvTraceSamplingRate = "OTEL_TRACES_SAMPLER_ARG"
	EnvDetailedLabels    = "METRICS_DETAILED_LABELS"
	EnvAuditEnabled      = "AUDIT_LOGGING_ENABLED"
	EnvAuditIncludePII   = "AUDIT_LOGGING_INCLUDE_PII"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	ServiceName       string
	ServiceVersion    string
	ServiceInstanceID string // defaults to the hostname

	// Enabled switches metrics and tracing on. A disabled provider hands out
	// a recorder that drops everything.
	Enabled bool

	// MetricsExporter is one of prometheus, otlp or stdout.
	MetricsExporter string

	// TracingExporter is one of otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port of the collector, without a scheme.
	OTLPEndpoint string

	// OTLPInsecure sends OTLP over plain HTTP. Spans carry event IDs, so only
	// use it with a local collector.
	OTLPInsecure bool

	TraceSamplingRate float64

	// DetailedLabels adds the model name to LLM metrics and the invocation
	// source to tool metrics.
	DetailedLabels bool

	// Output receives the stdout exporters' output. Stdout itself belongs to
	// the chat session or the MCP stream, so the default is os.Stderr.
	Output io.Writer

	// AuditLogging configures tool invocation logging.
	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled determines if audit logging is active (default: true)
	Enabled bool

	// IncludePII logs attendee addresses in clear instead of hashed identifiers.
	IncludePII bool
}

// DefaultConfig reads the configuration from the process environment.
func DefaultConfig() Config {
	return ConfigFromEnv(os.Getenv)
}

// ConfigFromEnv builds a Config from the variables returned by getenv.
// Unparseable values fall back to their defaults.
func ConfigFromEnv(getenv func(string) string) Config {
	env := envSource(getenv)
	return Config{
		ServiceName:       env.str(EnvServiceName, "claude-meet"),
		ServiceVersion:    "unknown",
		ServiceInstanceID: env.str(EnvServiceInstanceID, ""),
		Enabled:           env.boolean(EnvEnabled, true),
		MetricsExporter:   strings.ToLower(env.str(EnvMetricsExporter, ExporterPrometheus)),
		TracingExporter:   strings.ToLower(env.str(EnvTracingExporter, ExporterNone)),
		OTLPEndpoint:      env.str(EnvOTLPEndpoint, ""),
		OTLPInsecure:      env.boolean(EnvOTLPInsecure, false),
		TraceSamplingRate: env.float(EnvTraceSamplingRate, 0.1),
		DetailedLabels:    env.boolean(EnvDetailedLabels, false),
		AuditLogging: AuditLoggingConfig{
			Enabled:    env.boolean(EnvAuditEnabled, true),
			IncludePII: env.boolean(EnvAuditIncludePII, false),
		},
	}
}

// Validate checks exporter names, the sampling rate and that OTLP has an endpoint.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %g", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case "", ExporterPrometheus, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required for the otlp metrics exporter; set %s", EnvOTLPEndpoint)
		}
	default:
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case "", ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required for the otlp tracing exporter; set %s", EnvOTLPEndpoint)
		}
	default:
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	return nil
}

type envSource func(string) string

func (e envSource) str(key, defaultValue string) string {
	if value := strings.TrimSpace(e(key)); value != "" {
		return value
	}
	return defaultValue
}

func (e envSource) boolean(key string, defaultValue bool) bool {
	parsed, err := strconv.ParseBool(e.str(key, ""))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (e envSource) float(key string, defaultValue float64) float64 {
	parsed, err := strconv.ParseFloat(e.str(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Constants for metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	// OAuth result values
	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"

	// Tool invocation sources
	SourceChat = "chat"
	SourceMCP  = "mcp"

	// LLM token directions
	TokensInput  = "input"
	TokensOutput = "output"

	// Exporter types
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)
