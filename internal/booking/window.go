package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a venue-local clock time, e.g. 13:30 for the usual poolside
// slot.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24h).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// Window computes when a booking run is allowed to fire. Pure and
// deterministic: no I/O, no hidden clock.
//
// The venue chain opens reservations exactly LeadHours before a slot, so the
// ideal trigger instant for a given "now" is the slot's time of day today,
// and the slot itself is that instant plus LeadHours. The trigger fires only
// within ±Tolerance of the ideal instant, which keeps a cron that ticks more
// often than once a day from double-booking adjacent invocations.
type Window struct {
	TargetTime TimeOfDay
	LeadHours  int
	Tolerance  time.Duration
	Location   *time.Location
	Blackout   []time.Weekday // weekdays on which the venue takes no bookings
}

func (w Window) location() *time.Location {
	if w.Location != nil {
		return w.Location
	}
	return time.Local
}

// TargetSlot returns the slot this invocation would book: today's date at
// TargetTime plus LeadHours. ok is false when a blackout rule excludes the
// slot's weekday; the caller then skips the run rather than erroring.
func (w Window) TargetSlot(now time.Time) (time.Time, bool) {
	slot := w.idealTrigger(now).Add(time.Duration(w.LeadHours) * time.Hour)
	for _, day := range w.Blackout {
		if slot.Weekday() == day {
			return time.Time{}, false
		}
	}
	return slot, true
}

// ShouldTrigger reports whether now falls inside the tolerance window around
// the instant exactly LeadHours before the target slot.
func (w Window) ShouldTrigger(now time.Time) bool {
	if _, ok := w.TargetSlot(now); !ok {
		return false
	}
	d := now.Sub(w.idealTrigger(now))
	if d < 0 {
		d = -d
	}
	return d <= w.Tolerance
}

func (w Window) idealTrigger(now time.Time) time.Time {
	loc := w.location()
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), w.TargetTime.Hour, w.TargetTime.Minute, 0, 0, loc)
}
