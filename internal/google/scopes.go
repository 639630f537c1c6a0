package google

import calendar "google.golang.org/api/calendar/v3"

// DefaultOAuthScopes are the scopes requested during consent. Full calendar
// access is needed to read free/busy data and insert events with attendees.
var DefaultOAuthScopes = []string{
	calendar.CalendarScope,
}
