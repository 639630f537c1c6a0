package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/claude-meet/internal/calendar"
	"github.com/teemow/claude-meet/internal/instrumentation"
	"github.com/teemow/claude-meet/internal/logging"
)

// Tool names offered to the model.
const (
	ToolListUpcoming      = "list_upcoming_events"
	ToolCheckAvailability = "check_availability"
	ToolCreateEvent       = "create_event"
	ToolFindSlots         = "find_available_slots"
)

const (
	defaultListCount  = 10
	defaultSearchDays = 7
)

const errOneOperation = "not executed: only one calendar operation runs per response; request it again on its own"

// CalendarGateway is the subset of calendar.Client the relay drives.
type CalendarGateway interface {
	ListUpcoming(ctx context.Context, maxResults int) ([]calendar.EventSummary, error)
	CheckAvailability(ctx context.Context, tr calendar.TimeRange, attendees []string) ([]calendar.FreeBusyInfo, error)
	CreateEvent(ctx context.Context, input calendar.EventInput) (*calendar.EventSummary, error)
	FindAvailableSlots(ctx context.Context, q calendar.SlotQuery) ([]calendar.AvailableSlot, error)
}

type ListUpcomingInput struct {
	MaxResults int `json:"max_results,omitempty" jsonschema_description:"Maximum number of events to return (default 10)."`
}

type CheckAvailabilityInput struct {
	Attendees []string `json:"attendees,omitempty" jsonschema_description:"Email addresses whose calendars to check. Leave empty to check the user's own calendar."`
	Start     string   `json:"start" jsonschema_description:"Start of the range, RFC3339 or YYYY-MM-DDTHH:MM in the user's timezone."`
	End       string   `json:"end" jsonschema_description:"End of the range, RFC3339 or YYYY-MM-DDTHH:MM in the user's timezone."`
}

type CreateEventInput struct {
	Title       string   `json:"title" jsonschema_description:"Event title."`
	Start       string   `json:"start" jsonschema_description:"Start time, RFC3339 or YYYY-MM-DDTHH:MM in the user's timezone."`
	End         string   `json:"end,omitempty" jsonschema_description:"End time. Defaults to start plus the default meeting duration."`
	Attendees   []string `json:"attendees,omitempty" jsonschema_description:"Attendee email addresses. Invitations are sent to them."`
	Description string   `json:"description,omitempty" jsonschema_description:"Event description or agenda."`
	Location    string   `json:"location,omitempty" jsonschema_description:"Physical location or room."`
	AddMeet     bool     `json:"add_meet,omitempty" jsonschema_description:"Attach a Google Meet video conference."`
}

type FindSlotsInput struct {
	Attendees       []string `json:"attendees,omitempty" jsonschema_description:"Email addresses that must all be free."`
	DurationMinutes int      `json:"duration_minutes,omitempty" jsonschema_description:"Meeting length in minutes. Defaults to the configured meeting duration."`
	Start           string   `json:"start,omitempty" jsonschema_description:"Earliest slot start. Defaults to now."`
	End             string   `json:"end,omitempty" jsonschema_description:"Latest slot end. Defaults to seven days after start."`
	MaxResults      int      `json:"max_results,omitempty" jsonschema_description:"Maximum number of suggestions."`
}

type tool struct {
	name        string
	description string
	schema      anthropic.ToolInputSchemaParam
	run         func(ctx context.Context, tb *toolbox, input json.RawMessage, inv *instrumentation.ToolInvocation) (string, error)
}

var calendarTools = []tool{
	{
		name:        ToolListUpcoming,
		description: "List the user's upcoming calendar events, soonest first.",
		schema:      GenerateSchema[ListUpcomingInput](),
		run:         runListUpcoming,
	},
	{
		name:        ToolCheckAvailability,
		description: "Return the busy periods of one or more calendars within a time range.",
		schema:      GenerateSchema[CheckAvailabilityInput](),
		run:         runCheckAvailability,
	},
	{
		name:        ToolCreateEvent,
		description: "Create an event on the user's primary calendar and invite the attendees. Optionally attach a Google Meet link.",
		schema:      GenerateSchema[CreateEventInput](),
		run:         runCreateEvent,
	},
	{
		name:        ToolFindSlots,
		description: "Suggest free time slots within business hours when all attendees are available.",
		schema:      GenerateSchema[FindSlotsInput](),
		run:         runFindSlots,
	},
}

// toolbox executes model-requested tools against the gateway.
type toolbox struct {
	gateway         CalendarGateway
	loc             *time.Location
	defaultDuration time.Duration
	maxSuggestions  int
	now             func() time.Time
	metrics         *instrumentation.Metrics
	audit           *instrumentation.AuditLogger
	logger          *slog.Logger
}

func (tb *toolbox) params() []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(calendarTools))
	for _, t := range calendarTools {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.name,
			Description: anthropic.String(t.description),
			InputSchema: t.schema,
		}})
	}
	return out
}

func lookupTool(name string) (tool, bool) {
	for _, t := range calendarTools {
		if t.name == name {
			return t, true
		}
	}
	return tool{}, false
}

// execute runs one tool. Errors for which isInputError holds belong in an
// is_error tool result; any other error is a gateway failure.
func (tb *toolbox) execute(ctx context.Context, name string, input json.RawMessage) (string, error) {
	t, ok := lookupTool(name)
	if !ok {
		tb.logger.Warn("model requested unknown tool", logging.Tool(name))
		return "", invalidInput("tool not found: %s", name)
	}
	if len(input) == 0 {
		input = json.RawMessage("{}")
	}

	ctx, span := instrumentation.StartToolSpan(ctx, name, instrumentation.SourceChat)
	defer span.End()

	inv := instrumentation.NewToolInvocation(name, instrumentation.SourceChat).WithSpanContext(ctx)
	out, err := t.run(ctx, tb, input, inv)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		inv.CompleteWithError(err)
		instrumentation.SetSpanError(span, err)
	} else {
		inv.CompleteSuccess()
		instrumentation.SetSpanSuccess(span)
	}
	tb.metrics.RecordToolInvocation(ctx, name, instrumentation.SourceChat, status, inv.Duration)
	tb.audit.LogToolInvocation(inv)

	if err != nil && !isInputError(err) {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return out, err
}

func decodeInput(name string, input json.RawMessage, v any) error {
	if err := json.Unmarshal(input, v); err != nil {
		return invalidInput("invalid arguments for %s: %v", name, err)
	}
	return nil
}

func (tb *toolbox) parseRange(start, end string) (calendar.TimeRange, error) {
	var tr calendar.TimeRange
	var err error
	if tr.Start, err = calendar.ParseTime(start, tb.loc); err != nil {
		return tr, err
	}
	if tr.End, err = calendar.ParseTime(end, tb.loc); err != nil {
		return tr, err
	}
	if !tr.End.After(tr.Start) {
		return tr, invalidInput("end %s must be after start %s", end, start)
	}
	return tr, nil
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool result: %w", err)
	}
	return string(b), nil
}

func runListUpcoming(ctx context.Context, tb *toolbox, input json.RawMessage, _ *instrumentation.ToolInvocation) (string, error) {
	var in ListUpcomingInput
	if err := decodeInput(ToolListUpcoming, input, &in); err != nil {
		return "", err
	}
	if in.MaxResults <= 0 {
		in.MaxResults = defaultListCount
	}

	events, err := tb.gateway.ListUpcoming(ctx, in.MaxResults)
	if err != nil {
		return "", err
	}
	return toJSON(struct {
		Count  int                     `json:"count"`
		Events []calendar.EventSummary `json:"events"`
	}{len(events), events})
}

func runCheckAvailability(ctx context.Context, tb *toolbox, input json.RawMessage, inv *instrumentation.ToolInvocation) (string, error) {
	var in CheckAvailabilityInput
	if err := decodeInput(ToolCheckAvailability, input, &in); err != nil {
		return "", err
	}
	tr, err := tb.parseRange(in.Start, in.End)
	if err != nil {
		return "", err
	}
	inv.WithAttendees(in.Attendees)

	busy, err := tb.gateway.CheckAvailability(ctx, tr, in.Attendees)
	if err != nil {
		return "", err
	}
	return toJSON(struct {
		Start     time.Time               `json:"start"`
		End       time.Time               `json:"end"`
		Calendars []calendar.FreeBusyInfo `json:"calendars"`
	}{tr.Start, tr.End, busy})
}

func runCreateEvent(ctx context.Context, tb *toolbox, input json.RawMessage, inv *instrumentation.ToolInvocation) (string, error) {
	var in CreateEventInput
	if err := decodeInput(ToolCreateEvent, input, &in); err != nil {
		return "", err
	}
	start, err := calendar.ParseTime(in.Start, tb.loc)
	if err != nil {
		return "", err
	}
	end := start.Add(tb.defaultDuration)
	if in.End != "" {
		if end, err = calendar.ParseTime(in.End, tb.loc); err != nil {
			return "", err
		}
	}
	inv.WithAttendees(in.Attendees)

	ev, err := tb.gateway.CreateEvent(ctx, calendar.EventInput{
		Summary:     in.Title,
		Description: in.Description,
		Location:    in.Location,
		Start:       start,
		End:         end,
		Attendees:   in.Attendees,
		AddMeet:     in.AddMeet,
	})
	if err != nil {
		return "", err
	}
	inv.WithEventID(ev.ID)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String(instrumentation.SpanAttrEventID, ev.ID))
	return toJSON(struct {
		Created bool `json:"created"`
		*calendar.EventSummary
	}{true, ev})
}

type slotResult struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"duration_minutes"`
}

func runFindSlots(ctx context.Context, tb *toolbox, input json.RawMessage, inv *instrumentation.ToolInvocation) (string, error) {
	var in FindSlotsInput
	if err := decodeInput(ToolFindSlots, input, &in); err != nil {
		return "", err
	}
	if in.DurationMinutes < 0 {
		return "", invalidInput("duration_minutes must be positive, got %d", in.DurationMinutes)
	}

	q := calendar.SlotQuery{
		Attendees:  in.Attendees,
		Duration:   tb.defaultDuration,
		From:       tb.now().In(tb.loc),
		MaxResults: in.MaxResults,
	}
	if in.DurationMinutes > 0 {
		q.Duration = time.Duration(in.DurationMinutes) * time.Minute
	}
	if q.MaxResults <= 0 {
		q.MaxResults = tb.maxSuggestions
	}
	var err error
	if in.Start != "" {
		if q.From, err = calendar.ParseTime(in.Start, tb.loc); err != nil {
			return "", err
		}
	}
	q.To = q.From.AddDate(0, 0, defaultSearchDays)
	if in.End != "" {
		if q.To, err = calendar.ParseTime(in.End, tb.loc); err != nil {
			return "", err
		}
	}
	inv.WithAttendees(in.Attendees)

	slots, err := tb.gateway.FindAvailableSlots(ctx, q)
	if err != nil {
		return "", err
	}
	out := make([]slotResult, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotResult{Start: s.Start, End: s.End, DurationMinutes: int(s.End.Sub(s.Start).Minutes())})
	}
	return toJSON(struct {
		Slots []slotResult `json:"slots"`
	}{out})
}
