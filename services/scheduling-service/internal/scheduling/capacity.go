package scheduling

import "github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/model"

// CommittedCount counts bookings that consume capacity, skipping excludeID.
func CommittedCount(day []model.Booking, excludeID string) int {
	n := 0
	for _, b := range day {
		if b.AppointmentID == excludeID && excludeID != "" {
			continue
		}
		if b.Status.Committed() {
			n++
		}
	}
	return n
}

func HasCapacity(staff model.Staff, day []model.Booking, excludeID string) bool {
	return CommittedCount(day, excludeID) < staff.DailyCapacity
}
