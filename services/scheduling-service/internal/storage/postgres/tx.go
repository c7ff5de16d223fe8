package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/model"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/scheduling"
)

const appointmentColumns = `a.id, a.customer_name, a.service_id, COALESCE(a.staff_id, ''), a.appointment_date::text,
	to_char(a.appointment_time, 'HH24:MI'), a.status, a.created_at, a.updated_at`

type txStore struct {
	tx pgx.Tx
}

func (t *txStore) GetService(ctx context.Context, id string) (model.Service, error) {
	return getService(ctx, t.tx, id)
}

// LockStaff holds the staff row until the transaction ends, serializing every
// capacity and conflict check for that staff member.
func (t *txStore) LockStaff(ctx context.Context, id string) (model.Staff, error) {
	return getStaff(ctx, t.tx, id, true)
}

func (t *txStore) LockAppointment(ctx context.Context, id string) (model.Appointment, error) {
	a, err := scanAppointment(t.tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		WHERE a.id = $1
		FOR UPDATE
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, scheduling.ErrNotFound
	}
	return a, err
}

func (t *txStore) StaffDay(ctx context.Context, staffID, date string) ([]model.Booking, error) {
	return staffDay(ctx, t.tx, staffID, date)
}

func (t *txStore) InsertAppointment(ctx context.Context, a model.Appointment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO appointments
			(id, customer_name, service_id, staff_id, appointment_date, appointment_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5::date, $6::time, $7, $8, $9)
	`, a.ID, a.CustomerName, a.ServiceID, a.StaffID, a.Date, a.Time, string(a.Status), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", classify(err))
	}
	return nil
}

func (t *txStore) UpdateAppointment(ctx context.Context, a model.Appointment) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE appointments
		SET customer_name = $2,
			service_id = $3,
			staff_id = NULLIF($4, ''),
			appointment_date = $5::date,
			appointment_time = $6::time,
			status = $7,
			updated_at = $8
		WHERE id = $1
	`, a.ID, a.CustomerName, a.ServiceID, a.StaffID, a.Date, a.Time, string(a.Status), a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update appointment: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return scheduling.ErrNotFound
	}
	return nil
}

func (t *txStore) DeleteAppointment(ctx context.Context, id string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	return nil
}

func (t *txStore) Enqueue(ctx context.Context, appointmentID string) (int64, error) {
	var pos int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO queue_entries (appointment_id, position)
		VALUES ($1, nextval('queue_position_seq'))
		RETURNING position
	`, appointmentID).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("enqueue: %w", err)
	}
	return pos, nil
}

func (t *txStore) Dequeue(ctx context.Context, appointmentID string) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM queue_entries WHERE appointment_id = $1`, appointmentID)
	if err != nil {
		return false, fmt.Errorf("dequeue: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ClaimEarliestEligible skips rows other transactions hold, so concurrent
// auto-assigners each take a different entry.
func (t *txStore) ClaimEarliestEligible(ctx context.Context, staffType string) (model.Appointment, error) {
	a, err := scanAppointment(t.tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM queue_entries q
		JOIN appointments a ON a.id = q.appointment_id
		JOIN services s ON s.id = a.service_id
		WHERE s.required_staff_type = $1 AND a.status = 'queued'
		ORDER BY q.position
		LIMIT 1
		FOR UPDATE OF q, a SKIP LOCKED
	`, staffType))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, scheduling.ErrNotFound
	}
	return a, err
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		a      model.Appointment
		status string
	)
	if err := row.Scan(&a.ID, &a.CustomerName, &a.ServiceID, &a.StaffID, &a.Date, &a.Time, &status,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		return model.Appointment{}, err
	}
	a.Status = model.Status(status)
	return a, nil
}
