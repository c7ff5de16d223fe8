package grpcserver

import (
	"time"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/model"
)

// Messages travel with the grpcx JSON codec, so the field tags are the wire format.

type CreateAppointmentRequest struct {
	CustomerName string `json:"customer_name"`
	ServiceID    string `json:"service_id"`
	StaffID      string `json:"staff_id,omitempty"`
	Date         string `json:"date"`
	Time         string `json:"time"`
}

type CreateAppointmentResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	QueuePosition int64  `json:"queue_position,omitempty"`
}

// UpdateAppointmentRequest is a patch: empty fields keep their current value.
type UpdateAppointmentRequest struct {
	ID           string `json:"id"`
	CustomerName string `json:"customer_name,omitempty"`
	ServiceID    string `json:"service_id,omitempty"`
	StaffID      string `json:"staff_id,omitempty"`
	Date         string `json:"date,omitempty"`
	Time         string `json:"time,omitempty"`
	Status       string `json:"status,omitempty"`
}

type Appointment struct {
	ID           string    `json:"id"`
	CustomerName string    `json:"customer_name"`
	ServiceID    string    `json:"service_id"`
	StaffID      string    `json:"staff_id,omitempty"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type DeleteAppointmentRequest struct {
	ID string `json:"id"`
}

type DeleteAppointmentResponse struct{}

type ListQueueRequest struct{}

type QueueEntry struct {
	AppointmentID     string `json:"appointment_id"`
	Position          int64  `json:"position"`
	CustomerName      string `json:"customer_name"`
	Date              string `json:"date"`
	Time              string `json:"time"`
	ServiceID         string `json:"service_id"`
	ServiceName       string `json:"service_name"`
	RequiredStaffType string `json:"required_staff_type"`
}

type ListQueueResponse struct {
	Entries []QueueEntry `json:"entries"`
}

type AssignFromQueueRequest struct {
	AppointmentID string `json:"appointment_id"`
	StaffID       string `json:"staff_id"`
}

type AutoAssignRequest struct {
	StaffID string `json:"staff_id"`
}

type CheckConflictRequest struct {
	StaffID   string `json:"staff_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	ServiceID string `json:"service_id"`
	ExcludeID string `json:"exclude_id,omitempty"`
}

type Booking struct {
	AppointmentID   string `json:"appointment_id"`
	CustomerName    string `json:"customer_name"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
}

type CheckConflictResponse struct {
	Conflict bool     `json:"conflict"`
	Existing *Booking `json:"existing,omitempty"`
}

func fromAppointment(a model.Appointment) *Appointment {
	return &Appointment{
		ID:           a.ID,
		CustomerName: a.CustomerName,
		ServiceID:    a.ServiceID,
		StaffID:      a.StaffID,
		Date:         a.Date,
		Time:         a.Time,
		Status:       string(a.Status),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}
