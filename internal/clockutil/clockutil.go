// Package clockutil holds the calendar arithmetic for the community's fixed
// reporting timezone. Everything here is pure: callers pass now explicitly
// and get back absolute instants, so weekly-slot math stays deterministic
// and trivially testable.
package clockutil

import (
	"fmt"
	"time"

	"github.com/mwatts14/respawn/internal/models"
)

// DefaultTimezone is used when the catalog does not name one.
const DefaultTimezone = "America/New_York"

// LoadLocation resolves an IANA zone name, falling back to DefaultTimezone
// for the empty string.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}

// NextWeeklyOccurrence returns the first instant at or after now that lands
// on the slot's weekday and time-of-day in loc. A slot wins the current day
// only if its time-of-day has not yet passed; otherwise it rolls forward to
// the next matching weekday, wrapping at most 7 days ahead.
func NextWeeklyOccurrence(now time.Time, loc *time.Location, slot models.WeeklySlot) time.Time {
	local := now.In(loc)

	candidate := time.Date(local.Year(), local.Month(), local.Day(), slot.Hour, slot.Minute, 0, 0, loc)
	daysAhead := (int(slot.Weekday) - int(local.Weekday()) + 7) % 7
	candidate = candidate.AddDate(0, 0, daysAhead)

	if candidate.Before(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate.UTC()
}

// NextWeeklySlot picks the soonest occurrence across all of a boss's slots.
// ok is false when slots is empty.
func NextWeeklySlot(now time.Time, loc *time.Location, slots []models.WeeklySlot) (time.Time, bool) {
	var best time.Time
	found := false
	for _, slot := range slots {
		next := NextWeeklyOccurrence(now, loc, slot)
		if !found || next.Before(best) {
			best = next
			found = true
		}
	}
	return best, found
}
