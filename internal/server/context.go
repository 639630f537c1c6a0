package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/claude-meet/internal/calendar"
	"github.com/teemow/claude-meet/internal/instrumentation"
)

// CalendarGateway is the calendar surface the MCP tools call.
type CalendarGateway interface {
	ListUpcoming(ctx context.Context, maxResults int) ([]calendar.EventSummary, error)
	CheckAvailability(ctx context.Context, tr calendar.TimeRange, attendees []string) ([]calendar.FreeBusyInfo, error)
	CreateEvent(ctx context.Context, input calendar.EventInput) (*calendar.EventSummary, error)
	FindAvailableSlots(ctx context.Context, q calendar.SlotQuery) ([]calendar.AvailableSlot, error)
}

// Options configure a ServerContext. Zero values fall back to defaults.
type Options struct {
	Location        *time.Location
	DefaultDuration time.Duration
	MaxSuggestions  int

	Metrics     *instrumentation.Metrics
	AuditLogger *instrumentation.AuditLogger
	Logger      *slog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx             context.Context
	cancel          context.CancelFunc
	gateway         CalendarGateway
	loc             *time.Location
	defaultDuration time.Duration
	maxSuggestions  int
	metrics         *instrumentation.Metrics
	auditLogger     *instrumentation.AuditLogger
	logger          *slog.Logger
	now             func() time.Time
	mu              sync.RWMutex
	shutdown        bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, gateway CalendarGateway, opts Options) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:             shutdownCtx,
		cancel:          cancel,
		gateway:         gateway,
		loc:             opts.Location,
		defaultDuration: opts.DefaultDuration,
		maxSuggestions:  opts.MaxSuggestions,
		metrics:         opts.Metrics,
		auditLogger:     opts.AuditLogger,
		logger:          opts.Logger,
		now:             opts.Now,
	}
	if sc.loc == nil {
		sc.loc = time.UTC
	}
	if sc.defaultDuration <= 0 {
		sc.defaultDuration = time.Hour
	}
	if sc.maxSuggestions <= 0 {
		sc.maxSuggestions = calendar.DefaultPreferences().MaxSuggestions
	}
	if sc.logger == nil {
		sc.logger = slog.Default()
	}
	if sc.now == nil {
		sc.now = time.Now
	}
	return sc
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Calendar returns the calendar gateway
func (sc *ServerContext) Calendar() CalendarGateway {
	return sc.gateway
}

// Location returns the zone tool arguments are interpreted in.
func (sc *ServerContext) Location() *time.Location {
	return sc.loc
}

// DefaultDuration is the meeting length used when a tool call omits one.
func (sc *ServerContext) DefaultDuration() time.Duration {
	return sc.defaultDuration
}

// MaxSuggestions caps slot suggestions when a tool call omits a limit.
func (sc *ServerContext) MaxSuggestions() int {
	return sc.maxSuggestions
}

// Now returns the current time in the configured zone.
func (sc *ServerContext) Now() time.Time {
	return sc.now().In(sc.loc)
}

// Metrics returns the metrics recorder, or nil when instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, or nil when audit logging is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
