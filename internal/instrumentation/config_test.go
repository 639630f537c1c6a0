package instrumentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	config := ConfigFromEnv(envFrom(nil))

	assert.Equal(t, "claude-meet", config.ServiceName)
	assert.True(t, config.Enabled)
	assert.Equal(t, ExporterPrometheus, config.MetricsExporter)
	assert.Equal(t, ExporterNone, config.TracingExporter)
	assert.InDelta(t, 0.1, config.TraceSamplingRate, 1e-9)
	assert.False(t, config.DetailedLabels)
	assert.Nil(t, config.Output)
	assert.Equal(t, AuditLoggingConfig{Enabled: true, IncludePII: false}, config.AuditLogging)
	assert.NoError(t, config.Validate())
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	config := ConfigFromEnv(envFrom(map[string]string{
		EnvServiceName:       "scheduler",
		EnvEnabled:           "false",
		EnvMetricsExporter:   " OTLP ",
		EnvTracingExporter:   "Stdout",
		EnvOTLPEndpoint:      "localhost:4318",
		EnvOTLPInsecure:      "true",
		EnvTraceSamplingRate: "0.5",
		EnvDetailedLabels:    "1",
		EnvAuditIncludePII:   "true",
	}))

	assert.Equal(t, "scheduler", config.ServiceName)
	assert.False(t, config.Enabled)
	assert.Equal(t, ExporterOTLP, config.MetricsExporter)
	assert.Equal(t, ExporterStdout, config.TracingExporter)
	assert.Equal(t, "localhost:4318", config.OTLPEndpoint)
	assert.True(t, config.OTLPInsecure)
	assert.InDelta(t, 0.5, config.TraceSamplingRate, 1e-9)
	assert.True(t, config.DetailedLabels)
	assert.True(t, config.AuditLogging.IncludePII)
	assert.NoError(t, config.Validate())
}

func TestConfigFromEnv_UnparseableFallsBack(t *testing.T) {
	config := ConfigFromEnv(envFrom(map[string]string{
		EnvEnabled:           "maybe",
		EnvTraceSamplingRate: "often",
		EnvAuditEnabled:      "",
	}))

	assert.True(t, config.Enabled)
	assert.InDelta(t, 0.1, config.TraceSamplingRate, 1e-9)
	assert.True(t, config.AuditLogging.Enabled)
}

func TestDefaultConfig_ReadsProcessEnv(t *testing.T) {
	t.Setenv(EnvServiceName, "from-env")
	t.Setenv(EnvEnabled, "false")

	config := DefaultConfig()

	assert.Equal(t, "from-env", config.ServiceName)
	assert.False(t, config.Enabled)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		errContains string
	}{
		{
			name:   "prometheus without tracing",
			config: Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone},
		},
		{
			name:   "otlp with endpoint",
			config: Config{MetricsExporter: ExporterOTLP, TracingExporter: ExporterOTLP, OTLPEndpoint: "localhost:4318"},
		},
		{
			name:   "empty exporters",
			config: Config{},
		},
		{
			name:        "negative sampling rate",
			config:      Config{TraceSamplingRate: -0.5},
			errContains: "sampling rate",
		},
		{
			name:        "sampling rate above 1",
			config:      Config{TraceSamplingRate: 1.5},
			errContains: "sampling rate",
		},
		{
			name:        "unknown metrics exporter",
			config:      Config{MetricsExporter: "statsd"},
			errContains: "invalid metrics exporter",
		},
		{
			name:        "unknown tracing exporter",
			config:      Config{TracingExporter: "jaeger"},
			errContains: "invalid tracing exporter",
		},
		{
			name:        "otlp tracing without endpoint",
			config:      Config{TracingExporter: ExporterOTLP},
			errContains: "OTLP endpoint is required for the otlp tracing exporter",
		},
		{
			name:        "otlp metrics without endpoint",
			config:      Config{MetricsExporter: ExporterOTLP},
			errContains: "OTLP endpoint is required for the otlp metrics exporter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}
