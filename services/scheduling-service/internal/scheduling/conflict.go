package scheduling

import (
	"fmt"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/availability"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/model"
)

// FindConflict returns the first blocking booking whose own interval overlaps candidate.
// excludeID lets an appointment be re-validated without conflicting with itself.
func FindConflict(day []model.Booking, candidate availability.Interval, excludeID string) (model.Booking, bool, error) {
	for _, b := range day {
		if !b.Status.Blocking() {
			continue
		}
		if b.AppointmentID == excludeID && excludeID != "" {
			continue
		}
		iv, err := bookingInterval(b)
		if err != nil {
			return model.Booking{}, false, err
		}
		if iv.Overlaps(candidate) {
			return b, true, nil
		}
	}
	return model.Booking{}, false, nil
}

// busyIntervals lists the occupied windows of a staff day.
func busyIntervals(day []model.Booking) ([]availability.Interval, error) {
	busy := make([]availability.Interval, 0, len(day))
	for _, b := range day {
		if !b.Status.Blocking() {
			continue
		}
		iv, err := bookingInterval(b)
		if err != nil {
			return nil, err
		}
		busy = append(busy, iv)
	}
	return busy, nil
}

func bookingInterval(b model.Booking) (availability.Interval, error) {
	start, err := availability.ParseClock(b.Time)
	if err != nil {
		return availability.Interval{}, fmt.Errorf("appointment %s has invalid time %q: %w", b.AppointmentID, b.Time, err)
	}
	// Clamp to midnight: the service duration may have changed since booking.
	end := start + availability.Clock(b.DurationMinutes)
	if end > availability.MinutesPerDay {
		end = availability.MinutesPerDay
	}
	return availability.Interval{Start: start, End: end}, nil
}
