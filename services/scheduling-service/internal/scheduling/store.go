package scheduling

import (
	"context"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/model"
)

// Catalog is the read side used outside transactions: the service catalog, the staff
// directory and appointment listings.
type Catalog interface {
	GetService(ctx context.Context, id string) (model.Service, error)
	ListServices(ctx context.Context) ([]model.Service, error)
	GetStaff(ctx context.Context, id string) (model.Staff, error)
	ListStaff(ctx context.Context, filter model.StaffFilter) ([]model.Staff, error)
	ListStaffTypes(ctx context.Context) ([]string, error)
}

// Reader serves appointment and queue reads.
type Reader interface {
	GetAppointment(ctx context.Context, id string) (model.AppointmentDetail, error)
	ListAppointments(ctx context.Context, filter model.AppointmentFilter) ([]model.AppointmentDetail, error)
	ListQueue(ctx context.Context) ([]model.QueueEntry, error)
	StaffDay(ctx context.Context, staffID, date string) ([]model.Booking, error)
}

// Store runs engine transactions. A failed fn rolls back every write it made.
type Store interface {
	Catalog
	Reader
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the transactional view the engine mutates state through.
//
// LockStaff must serialize concurrent callers for the same staff member until the
// transaction ends; capacity and conflict checks depend on it.
type Tx interface {
	GetService(ctx context.Context, id string) (model.Service, error)
	LockStaff(ctx context.Context, id string) (model.Staff, error)
	LockAppointment(ctx context.Context, id string) (model.Appointment, error)
	StaffDay(ctx context.Context, staffID, date string) ([]model.Booking, error)

	InsertAppointment(ctx context.Context, appt model.Appointment) error
	UpdateAppointment(ctx context.Context, appt model.Appointment) error
	DeleteAppointment(ctx context.Context, id string) error

	// Enqueue assigns the next queue position from an atomic sequence.
	Enqueue(ctx context.Context, appointmentID string) (int64, error)
	// Dequeue reports whether an entry was removed.
	Dequeue(ctx context.Context, appointmentID string) (bool, error)
	// ClaimEarliestEligible locks the lowest position queued appointment whose service
	// requires staffType, or returns ErrNotFound.
	ClaimEarliestEligible(ctx context.Context, staffType string) (model.Appointment, error)
}
