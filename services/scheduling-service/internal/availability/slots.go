package availability

import (
	"errors"
	"fmt"
	"time"
)

// MinutesPerDay is the exclusive upper bound of a Clock.
const MinutesPerDay = 24 * 60

var (
	ErrInvalidClock    = errors.New("time must be HH:MM")
	ErrInvalidDate     = errors.New("date must be YYYY-MM-DD")
	ErrCrossesMidnight = errors.New("appointment would run past midnight")
)

// Clock is a time of day in minutes since midnight.
type Clock int

func ParseClock(raw string) (Clock, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return Clock(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, ErrInvalidClock
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ParseDate validates a calendar date and returns it in canonical form.
func ParseDate(raw string) (string, error) {
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return "", ErrInvalidDate
	}
	return d.Format(time.DateOnly), nil
}

// Interval is the half-open occupancy window [Start, End).
type Interval struct {
	Start Clock
	End   Clock
}

// NewInterval builds [start, start+minutes). Appointments must finish by midnight.
func NewInterval(start Clock, minutes int) (Interval, error) {
	if start < 0 || start >= MinutesPerDay {
		return Interval{}, ErrInvalidClock
	}
	if minutes <= 0 {
		return Interval{}, fmt.Errorf("duration must be positive, got %d", minutes)
	}
	end := start + Clock(minutes)
	if end > MinutesPerDay {
		return Interval{}, ErrCrossesMidnight
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps uses strict comparisons, so back-to-back intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && o.Start < i.End
}

// OpenSlots returns start times within [windowStart, windowEnd) where an interval of
// length minutes fits without overlapping any busy interval.
func OpenSlots(windowStart, windowEnd Clock, minutes, step int, busy []Interval) []Clock {
	if minutes <= 0 || step <= 0 || windowEnd <= windowStart {
		return nil
	}
	if windowEnd > MinutesPerDay {
		windowEnd = MinutesPerDay
	}

	var slots []Clock
	for t := windowStart; t+Clock(minutes) <= windowEnd; t += Clock(step) {
		candidate := Interval{Start: t, End: t + Clock(minutes)}
		if !overlapsAny(candidate, busy) {
			slots = append(slots, t)
		}
	}
	return slots
}

func overlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}
