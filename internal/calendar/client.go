package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/claude-meet/internal/instrumentation"
	"github.com/teemow/claude-meet/internal/logging"
)

// PrimaryCalendarID addresses the authenticated user's main calendar.
const PrimaryCalendarID = "primary"

// Operation names used for errors, metrics and spans.
const (
	OpListUpcoming      = "list_upcoming"
	OpCheckAvailability = "check_availability"
	OpCreateEvent       = "create_event"
	OpFindSlots         = "find_available_slots"
	OpGetCalendar       = "get_calendar"
)

// Options configure a Client. Zero values fall back to sensible defaults.
type Options struct {
	// Location is the zone events are created in and results are converted to (default UTC).
	Location *time.Location

	// CalendarID is the calendar events are listed from and inserted into (default "primary").
	CalendarID string

	Preferences Preferences

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Client wraps the Google Calendar service
type Client struct {
	svc        *calendar.Service
	loc        *time.Location
	calendarID string
	prefs      Preferences
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a Calendar client using an authenticated HTTP client.
// Extra client options are passed to the Calendar service, e.g. an endpoint override.
func NewClient(ctx context.Context, httpClient *http.Client, opts Options, extra ...option.ClientOption) (*Client, error) {
	clientOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, extra...)
	svc, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return NewClientFromService(svc, opts), nil
}

// NewClientFromService wraps an existing Calendar service.
func NewClientFromService(svc *calendar.Service, opts Options) *Client {
	c := &Client{
		svc:        svc,
		loc:        opts.Location,
		calendarID: opts.CalendarID,
		prefs:      opts.Preferences,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if c.loc == nil {
		c.loc = time.UTC
	}
	if c.calendarID == "" {
		c.calendarID = PrimaryCalendarID
	}
	if c.prefs == (Preferences{}) {
		c.prefs = DefaultPreferences()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Location returns the zone the client works in.
func (c *Client) Location() *time.Location {
	return c.loc
}

// observe starts a span for op and returns a function that records the
// outcome. The returned error is the classified one.
func (c *Client) observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error) error) {
	start := time.Now()
	ctx, span := instrumentation.StartCalendarSpan(ctx, op,
		append([]attribute.KeyValue{attribute.String(instrumentation.SpanAttrCalendarID, c.calendarID)}, attrs...)...)

	return ctx, func(err error) error {
		defer span.End()
		duration := time.Since(start)

		if err != nil {
			err = classify(op, err)
			instrumentation.SetSpanError(span, err)
			c.metrics.RecordCalendarOperation(ctx, op, instrumentation.StatusError, duration)
			c.logger.Debug("calendar operation failed",
				logging.Operation(op),
				slog.Duration(logging.KeyDuration, duration),
				logging.Err(err))
			return err
		}

		instrumentation.SetSpanSuccess(span)
		c.metrics.RecordCalendarOperation(ctx, op, instrumentation.StatusSuccess, duration)
		c.logger.Debug("calendar operation",
			logging.Operation(op),
			slog.Duration(logging.KeyDuration, duration),
			logging.Status(logging.StatusSuccess))
		return nil
	}
}

// classify wraps vendor failures in *APIError. Input validation errors pass through.
func classify(op string, err error) error {
	if errors.Is(err, ErrInvalidInput) {
		return err
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &APIError{Op: op, StatusCode: gerr.Code, Err: err}
	}
	return &APIError{Op: op, Err: err}
}

// ListUpcoming returns at most maxResults events starting from now, ordered by start time.
func (c *Client) ListUpcoming(ctx context.Context, maxResults int) (_ []EventSummary, err error) {
	if maxResults < 1 {
		return nil, fmt.Errorf("%w: maxResults must be at least 1, got %d", ErrInvalidInput, maxResults)
	}

	ctx, done := c.observe(ctx, OpListUpcoming)
	defer func() { err = done(err) }()

	events, err := c.svc.Events.List(c.calendarID).
		Context(ctx).
		TimeMin(c.now().Format(time.RFC3339)).
		MaxResults(int64(maxResults)).
		SingleEvents(true).
		OrderBy("startTime").
		TimeZone(c.loc.String()).
		Do()
	if err != nil {
		return nil, err
	}

	summaries := make([]EventSummary, 0, len(events.Items))
	for _, event := range events.Items {
		summaries = append(summaries, toEventSummary(event, c.loc))
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Start.Before(summaries[j].Start)
	})
	if len(summaries) > maxResults {
		summaries = summaries[:maxResults]
	}

	return summaries, nil
}

// CheckAvailability returns the busy intervals of each attendee's calendar
// in the range, sorted by calendar. With no attendees the client's own
// calendar is queried.
func (c *Client) CheckAvailability(ctx context.Context, tr TimeRange, attendees []string) (_ []FreeBusyInfo, err error) {
	if !tr.End.After(tr.Start) {
		return nil, fmt.Errorf("%w: end must be after start", ErrInvalidInput)
	}

	ctx, done := c.observe(ctx, OpCheckAvailability, attribute.Int("calendar.attendee_count", len(attendees)))
	defer func() { err = done(err) }()

	return c.freeBusy(ctx, tr, attendees)
}

func (c *Client) freeBusy(ctx context.Context, tr TimeRange, attendees []string) ([]FreeBusyInfo, error) {
	ids := attendees
	if len(ids) == 0 {
		ids = []string{c.calendarID}
	}
	items := make([]*calendar.FreeBusyRequestItem, len(ids))
	for i, id := range ids {
		items[i] = &calendar.FreeBusyRequestItem{Id: id}
	}

	result, err := c.svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin:  tr.Start.Format(time.RFC3339),
		TimeMax:  tr.End.Format(time.RFC3339),
		TimeZone: c.loc.String(),
		Items:    items,
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	infos := make([]FreeBusyInfo, 0, len(result.Calendars))
	for calID, cal := range result.Calendars {
		info := FreeBusyInfo{Calendar: calID, Busy: []TimeRange{}}
		for _, busy := range cal.Busy {
			start, err := time.Parse(time.RFC3339, busy.Start)
			if err != nil {
				return nil, fmt.Errorf("unexpected busy start %q: %w", busy.Start, err)
			}
			end, err := time.Parse(time.RFC3339, busy.End)
			if err != nil {
				return nil, fmt.Errorf("unexpected busy end %q: %w", busy.End, err)
			}
			info.Busy = append(info.Busy, TimeRange{Start: start.In(c.loc), End: end.In(c.loc)})
		}
		for _, e := range cal.Errors {
			info.Errors = append(info.Errors, e.Reason)
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Calendar < infos[j].Calendar })

	return infos, nil
}

// CreateEvent inserts an event into the client's calendar. Attendees are
// notified by the Calendar API when present.
func (c *Client) CreateEvent(ctx context.Context, input EventInput) (_ *EventSummary, err error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	ctx, done := c.observe(ctx, OpCreateEvent, attribute.Int("calendar.attendee_count", len(input.Attendees)))
	defer func() { err = done(err) }()

	tz := c.loc.String()
	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.In(c.loc).Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.In(c.loc).Format(time.RFC3339),
			TimeZone: tz,
		},
	}

	for _, email := range input.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}

	call := c.svc.Events.Insert(c.calendarID, event).Context(ctx)
	if input.AddMeet {
		event.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		}
		call = call.ConferenceDataVersion(1)
	}
	if len(input.Attendees) > 0 {
		call = call.SendUpdates("all")
	} else {
		call = call.SendUpdates("none")
	}

	created, err := call.Do()
	if err != nil {
		return nil, err
	}

	summary := toEventSummary(created, c.loc)
	c.logger.Info("created calendar event",
		logging.EventID(summary.ID),
		logging.Attendees(input.Attendees))
	return &summary, nil
}

// GetPrimaryCalendar retrieves information about the client's calendar.
func (c *Client) GetPrimaryCalendar(ctx context.Context) (_ *CalendarInfo, err error) {
	ctx, done := c.observe(ctx, OpGetCalendar)
	defer func() { err = done(err) }()

	entry, err := c.svc.CalendarList.Get(c.calendarID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	info := toCalendarInfo(entry)
	return &info, nil
}
