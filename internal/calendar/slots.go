package calendar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/claude-meet/internal/logging"
)

// slotStep is the granularity candidate start times are aligned to.
const slotStep = 15 * time.Minute

// lunch is the hour AvoidLunch keeps free.
const (
	lunchStartHour = 12
	lunchEndHour   = 13
)

// FindAvailableSlots finds time slots in which every attendee is free.
// Candidates lie within business hours on weekdays, start on a 15-minute
// boundary and do not overlap each other. With PreferMorning, slots starting
// before noon are listed first; otherwise results are chronological.
func (c *Client) FindAvailableSlots(ctx context.Context, q SlotQuery) (_ []AvailableSlot, err error) {
	if q.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}
	if !q.To.After(q.From) {
		return nil, fmt.Errorf("%w: search window end must be after its start", ErrInvalidInput)
	}

	ctx, done := c.observe(ctx, OpFindSlots, attribute.Int("calendar.attendee_count", len(q.Attendees)))
	defer func() { err = done(err) }()

	from := q.From
	if now := c.now(); from.Before(now) {
		from = now
	}
	from = from.In(c.loc)
	to := q.To.In(c.loc)
	if !to.After(from) {
		return []AvailableSlot{}, nil
	}

	infos, err := c.freeBusy(ctx, TimeRange{Start: from, End: to}, q.Attendees)
	if err != nil {
		return nil, err
	}

	var busy []TimeRange
	for _, info := range infos {
		if len(info.Errors) > 0 {
			c.logger.Warn("free/busy unavailable for calendar, treating it as free",
				logging.UserHash(info.Calendar),
				"reasons", info.Errors)
		}
		busy = append(busy, info.Busy...)
	}

	limit := q.MaxResults
	if limit <= 0 {
		limit = c.prefs.MaxSuggestions
	}

	slots := candidateSlots(from, to, q.Duration, mergeBusy(busy), c.prefs)
	if c.prefs.PreferMorning {
		sort.SliceStable(slots, func(i, j int) bool {
			return isMorning(slots[i].Start) && !isMorning(slots[j].Start)
		})
	}
	if limit > 0 && len(slots) > limit {
		slots = slots[:limit]
	}
	return slots, nil
}

// mergeBusy sorts intervals and merges overlapping or touching ones.
func mergeBusy(busy []TimeRange) []TimeRange {
	if len(busy) == 0 {
		return nil
	}
	sorted := make([]TimeRange, len(busy))
	copy(sorted, busy)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	merged := []TimeRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !r.Start.After(last.End) {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// candidateSlots walks each weekday's business hours between from and to.
// busy must be sorted and merged.
func candidateSlots(from, to time.Time, duration time.Duration, busy []TimeRange, prefs Preferences) []AvailableSlot {
	loc := from.Location()
	slots := []AvailableSlot{}

	for day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc); day.Before(to); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}

		open := time.Date(day.Year(), day.Month(), day.Day(), prefs.BusinessHoursStart, 0, 0, 0, loc)
		closing := time.Date(day.Year(), day.Month(), day.Day(), prefs.BusinessHoursEnd, 0, 0, 0, loc)
		if closing.After(to) {
			closing = to
		}
		lunch := TimeRange{
			Start: time.Date(day.Year(), day.Month(), day.Day(), lunchStartHour, 0, 0, 0, loc),
			End:   time.Date(day.Year(), day.Month(), day.Day(), lunchEndHour, 0, 0, 0, loc),
		}

		start := open
		if start.Before(from) {
			start = alignUp(from, open)
		}

		for !start.Add(duration).After(closing) {
			slot := TimeRange{Start: start, End: start.Add(duration)}

			if blocker, ok := firstOverlap(slot, busy); ok {
				start = alignUp(blocker.End, open)
				continue
			}
			if prefs.AvoidLunch && slot.Overlaps(lunch) {
				start = alignUp(lunch.End, open)
				continue
			}

			slots = append(slots, AvailableSlot{Start: slot.Start, End: slot.End, Duration: duration})
			start = alignUp(slot.End, open)
		}
	}
	return slots
}

func firstOverlap(slot TimeRange, busy []TimeRange) (TimeRange, bool) {
	for _, b := range busy {
		if !b.Start.Before(slot.End) {
			break
		}
		if slot.Overlaps(b) {
			return b, true
		}
	}
	return TimeRange{}, false
}

// alignUp rounds t up to the next slotStep boundary counted from origin.
func alignUp(t, origin time.Time) time.Time {
	if !t.After(origin) {
		return origin
	}
	offset := t.Sub(origin)
	steps := (offset + slotStep - 1) / slotStep
	return origin.Add(steps * slotStep)
}

func isMorning(t time.Time) bool {
	return t.Hour() < lunchStartHour
}
