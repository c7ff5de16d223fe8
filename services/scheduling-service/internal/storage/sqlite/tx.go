package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/model"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/scheduling"
)

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) GetService(ctx context.Context, id string) (model.Service, error) {
	return getService(ctx, t.tx, id)
}

// LockStaff is a plain read: the single connection already excludes other writers.
func (t *txStore) LockStaff(ctx context.Context, id string) (model.Staff, error) {
	return getStaff(ctx, t.tx, id)
}

func (t *txStore) LockAppointment(ctx context.Context, id string) (model.Appointment, error) {
	var (
		a         model.Appointment
		status    string
		createdAt string
		updatedAt string
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, customer_name, service_id, COALESCE(staff_id, ''), appointment_date, appointment_time,
			status, created_at, updated_at
		FROM appointments
		WHERE id = ?
	`, id).Scan(&a.ID, &a.CustomerName, &a.ServiceID, &a.StaffID, &a.Date, &a.Time, &status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Appointment{}, scheduling.ErrNotFound
	}
	if err != nil {
		return model.Appointment{}, err
	}
	a.Status = model.Status(status)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return a, nil
}

func (t *txStore) StaffDay(ctx context.Context, staffID, date string) ([]model.Booking, error) {
	return staffDay(ctx, t.tx, staffID, date)
}

func (t *txStore) InsertAppointment(ctx context.Context, a model.Appointment) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO appointments
			(id, customer_name, service_id, staff_id, appointment_date, appointment_time, status, created_at, updated_at)
		VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?)
	`, a.ID, a.CustomerName, a.ServiceID, a.StaffID, a.Date, a.Time, string(a.Status),
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (t *txStore) UpdateAppointment(ctx context.Context, a model.Appointment) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE appointments
		SET customer_name = ?,
			service_id = ?,
			staff_id = NULLIF(?, ''),
			appointment_date = ?,
			appointment_time = ?,
			status = ?,
			updated_at = ?
		WHERE id = ?
	`, a.CustomerName, a.ServiceID, a.StaffID, a.Date, a.Time, string(a.Status), formatTime(a.UpdatedAt), a.ID)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return scheduling.ErrNotFound
	}
	return nil
}

func (t *txStore) DeleteAppointment(ctx context.Context, id string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM appointments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	return nil
}

func (t *txStore) Enqueue(ctx context.Context, appointmentID string) (int64, error) {
	var pos int64
	err := t.tx.QueryRowContext(ctx, `
		UPDATE queue_sequence SET last_position = last_position + 1 WHERE id = 1
		RETURNING last_position
	`).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("next queue position: %w", err)
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO queue_entries (appointment_id, position, created_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	`, appointmentID, pos)
	if err != nil {
		return 0, fmt.Errorf("enqueue: %w", err)
	}
	return pos, nil
}

func (t *txStore) Dequeue(ctx context.Context, appointmentID string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM queue_entries WHERE appointment_id = ?`, appointmentID)
	if err != nil {
		return false, fmt.Errorf("dequeue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *txStore) ClaimEarliestEligible(ctx context.Context, staffType string) (model.Appointment, error) {
	var id string
	err := t.tx.QueryRowContext(ctx, `
		SELECT a.id
		FROM queue_entries q
		JOIN appointments a ON a.id = q.appointment_id
		JOIN services s ON s.id = a.service_id
		WHERE s.required_staff_type = ? AND a.status = 'queued'
		ORDER BY q.position
		LIMIT 1
	`, staffType).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Appointment{}, scheduling.ErrNotFound
	}
	if err != nil {
		return model.Appointment{}, err
	}
	return t.LockAppointment(ctx, id)
}
