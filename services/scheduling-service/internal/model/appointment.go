package model

import "time"

// Appointment is one booking. StaffID is empty while the appointment waits in the queue.
type Appointment struct {
	ID           string
	CustomerName string
	ServiceID    string
	StaffID      string
	Date         string // YYYY-MM-DD
	Time         string // HH:MM
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AppointmentDetail is an Appointment joined with the names callers display.
type AppointmentDetail struct {
	Appointment
	ServiceName     string
	DurationMinutes int
	StaffName       string
	QueuePosition   int64
}

// Booking is the per staff, per day projection the capacity and conflict checks run on.
type Booking struct {
	AppointmentID   string
	CustomerName    string
	Time            string
	DurationMinutes int
	Status          Status
}

type AppointmentFilter struct {
	Date    string
	StaffID string
	Status  Status
	Limit   int
}
