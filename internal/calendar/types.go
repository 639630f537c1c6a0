package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
)

// ErrInvalidInput is wrapped by errors for arguments rejected before any API call.
var ErrInvalidInput = errors.New("invalid input")

// ErrInvalidTime is wrapped by ParseTime failures.
var ErrInvalidTime = errors.New("invalid time")

// APIError reports a failed Calendar API call. StatusCode is zero when the
// request never produced an HTTP response.
type APIError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("calendar %s failed (HTTP %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("calendar %s failed: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// EventInput describes an event to create.
type EventInput struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Attendees   []string

	// AddMeet requests a Google Meet conference for the event.
	AddMeet bool
}

// Validate checks the fields CreateEvent requires.
func (in EventInput) Validate() error {
	if strings.TrimSpace(in.Summary) == "" {
		return fmt.Errorf("%w: event title is required", ErrInvalidInput)
	}
	if in.Start.IsZero() {
		return fmt.Errorf("%w: event start is required", ErrInvalidInput)
	}
	if !in.End.After(in.Start) {
		return fmt.Errorf("%w: event end must be after its start", ErrInvalidInput)
	}
	for _, a := range in.Attendees {
		if !strings.Contains(a, "@") {
			return fmt.Errorf("%w: attendee %q is not an email address", ErrInvalidInput, a)
		}
	}
	return nil
}

// EventSummary is a calendar event as shown to the user and the model.
// Times are in the client's configured zone.
type EventSummary struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day,omitempty"`
	Organizer   string    `json:"organizer,omitempty"`
	Status      string    `json:"status,omitempty"`
	Attendees   []string  `json:"attendees,omitempty"`
	MeetLink    string    `json:"meet_link,omitempty"`
	HTMLLink    string    `json:"html_link,omitempty"`
}

// CalendarInfo represents information about a calendar
type CalendarInfo struct {
	ID       string
	Summary  string
	TimeZone string
	Primary  bool
}

// FreeBusyInfo represents availability information for a calendar
type FreeBusyInfo struct {
	Calendar string      `json:"calendar"`
	Busy     []TimeRange `json:"busy"`
	Errors   []string    `json:"errors,omitempty"`
}

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether the two ranges share any instant.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// AvailableSlot represents an available time slot for scheduling
type AvailableSlot struct {
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"-"`
}

// SlotQuery asks for free slots shared by all attendees.
type SlotQuery struct {
	Attendees []string
	Duration  time.Duration
	From      time.Time
	To        time.Time

	// MaxResults overrides Preferences.MaxSuggestions when positive.
	MaxResults int
}

// Preferences shape FindAvailableSlots results.
type Preferences struct {
	BusinessHoursStart int
	BusinessHoursEnd   int
	MaxSuggestions     int
	PreferMorning      bool
	AvoidLunch         bool
}

// DefaultPreferences mirrors the configuration defaults.
func DefaultPreferences() Preferences {
	return Preferences{
		BusinessHoursStart: 9,
		BusinessHoursEnd:   17,
		MaxSuggestions:     5,
		PreferMorning:      true,
		AvoidLunch:         true,
	}
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses an RFC3339 timestamp, or a zone-less date/time
// interpreted in loc. The result is expressed in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidTime)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q (use RFC3339, e.g. 2025-01-15T14:00:00+01:00)", ErrInvalidTime, s)
}

// toEventSummary converts a Google Calendar event to an EventSummary
func toEventSummary(event *calendar.Event, loc *time.Location) EventSummary {
	if event == nil {
		return EventSummary{}
	}
	if loc == nil {
		loc = time.UTC
	}

	summary := EventSummary{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Status:      event.Status,
		HTMLLink:    event.HtmlLink,
		MeetLink:    event.HangoutLink,
	}

	summary.Start, summary.AllDay = parseEventTime(event.Start, loc)
	summary.End, _ = parseEventTime(event.End, loc)

	if event.Organizer != nil {
		summary.Organizer = event.Organizer.Email
	}
	for _, att := range event.Attendees {
		summary.Attendees = append(summary.Attendees, att.Email)
	}

	if summary.MeetLink == "" && event.ConferenceData != nil {
		for _, ep := range event.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				summary.MeetLink = ep.Uri
				break
			}
		}
	}

	return summary
}

// parseEventTime returns the instant in loc and whether it was an all-day date.
func parseEventTime(dt *calendar.EventDateTime, loc *time.Location) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t.In(loc), false
		}
	}
	if dt.Date != "" {
		if t, err := time.ParseInLocation("2006-01-02", dt.Date, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// toCalendarInfo converts a Google Calendar list entry to CalendarInfo
func toCalendarInfo(entry *calendar.CalendarListEntry) CalendarInfo {
	if entry == nil {
		return CalendarInfo{}
	}
	return CalendarInfo{
		ID:       entry.Id,
		Summary:  entry.Summary,
		TimeZone: entry.TimeZone,
		Primary:  entry.Primary,
	}
}
