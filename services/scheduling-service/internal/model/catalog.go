package model

// Service is read-only catalog data.
type Service struct {
	ID                string
	Name              string
	DurationMinutes   int
	RequiredStaffType string
}

var validDurations = map[int]struct{}{15: {}, 30: {}, 45: {}, 60: {}, 90: {}, 120: {}}

func ValidDuration(minutes int) bool {
	_, ok := validDurations[minutes]
	return ok
}

type StaffStatus string

const (
	StaffAvailable StaffStatus = "available"
	StaffOnLeave   StaffStatus = "on_leave"
)

type Staff struct {
	ID            string
	Name          string
	ServiceType   string
	DailyCapacity int
	Status        StaffStatus
}

// Eligible reports whether s may take new work for svc.
func (s Staff) Eligible(svc Service) bool {
	return s.Status != StaffOnLeave && s.ServiceType == svc.RequiredStaffType
}

// StaffLoad is a staff member with the committed appointment count for one date.
type StaffLoad struct {
	Staff
	AppointmentCount int
}

type StaffFilter struct {
	Type string
	Date string
}

// QueueEntry is a waiting appointment joined with what callers need to pick staff for it.
type QueueEntry struct {
	AppointmentID     string
	Position          int64
	CustomerName      string
	Date              string
	Time              string
	ServiceID         string
	ServiceName       string
	RequiredStaffType string
}
