package instrumentation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/teemow/claude-meet/internal/logging"
)

// ToolInvocation captures one calendar tool call for audit logging, whether
// it was requested by the model in chat or by an MCP client.
//
// # Privacy Considerations
//
// Attendees contains email addresses. LogAttrs only emits their domains and
// hashed identifiers; LogAuditAttrs emits them in clear.
type ToolInvocation struct {
	// Tool name
	Tool string

	// Source is "chat" or "mcp"
	Source string

	// Calendar details
	Attendees []string
	EventID   string

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// AttendeeDomains returns the sorted, de-duplicated attendee domains.
func (ti *ToolInvocation) AttendeeDomains() []string {
	seen := make(map[string]bool, len(ti.Attendees))
	domains := make([]string, 0, len(ti.Attendees))
	for _, a := range ti.Attendees {
		d := logging.ExtractDomain(a)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes without attendee addresses.
func (ti *ToolInvocation) LogAttrs() []slog.Attr {
	attrs := ti.baseAttrs()
	if len(ti.Attendees) > 0 {
		attrs = append(attrs,
			slog.Int("attendee_count", len(ti.Attendees)),
			slog.Any("attendee_domains", ti.AttendeeDomains()),
			logging.Attendees(ti.Attendees),
		)
	}
	return ti.appendTail(attrs)
}

// LogAuditAttrs returns slog attributes including attendee addresses in clear.
func (ti *ToolInvocation) LogAuditAttrs() []slog.Attr {
	attrs := ti.baseAttrs()
	if len(ti.Attendees) > 0 {
		attrs = append(attrs, slog.Any("attendees", ti.Attendees))
	}
	attrs = ti.appendTail(attrs)
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	return attrs
}

func (ti *ToolInvocation) baseAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String(logging.KeyTool, ti.Tool),
		slog.Duration(logging.KeyDuration, ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.Source != "" {
		attrs = append(attrs, slog.String("source", ti.Source))
	}
	return attrs
}

func (ti *ToolInvocation) appendTail(attrs []slog.Attr) []slog.Attr {
	if ti.EventID != "" {
		attrs = append(attrs, logging.EventID(ti.EventID))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String(logging.KeyError, ti.Error))
	}
	return attrs
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete() when the tool operation finishes.
func NewToolInvocation(tool, source string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		Source:    source,
		StartTime: time.Now(),
	}
}

// WithAttendees records the attendee addresses the tool was called with.
func (ti *ToolInvocation) WithAttendees(attendees []string) *ToolInvocation {
	ti.Attendees = attendees
	return ti
}

// WithEventID records the event created or touched by the tool.
func (ti *ToolInvocation) WithEventID(id string) *ToolInvocation {
	ti.EventID = id
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	ti.SpanID = GetSpanID(ctx)
	return ti
}

// Complete marks the invocation as completed and calculates duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// CompleteWithError marks the invocation as failed with the given error.
func (ti *ToolInvocation) CompleteWithError(err error) *ToolInvocation {
	return ti.Complete(false, err)
}

// CompleteSuccess marks the invocation as successful.
func (ti *ToolInvocation) CompleteSuccess() *ToolInvocation {
	return ti.Complete(true, nil)
}

// AuditLogger provides structured audit logging for tool invocations.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given configuration.
// A nil logger falls back to slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs a tool invocation. Successful calls log at debug
// level, failures at warn. A nil AuditLogger logs nothing.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = ti.LogAuditAttrs()
	} else {
		attrs = ti.LogAttrs()
	}

	if ti.Success {
		al.logger.LogAttrs(context.Background(), slog.LevelDebug, "tool_executed", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "tool_failed", attrs...)
	}
}
