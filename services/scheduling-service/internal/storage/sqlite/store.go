package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/db"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/activity"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/model"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/scheduling"
)

//go:embed schema.sql
var schemaSQL string

var dialect = goqu.Dialect("sqlite3")

// Store is the embedded scheduling store. The connection pool is capped at one
// connection, so transactions never interleave and LockStaff needs no row lock.
type Store struct {
	db *sql.DB
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := db.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: sqlDB}
	if err := s.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx scheduling.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(ctx, &txStore{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) GetService(ctx context.Context, id string) (model.Service, error) {
	return getService(ctx, s.db, id)
}

func (s *Store) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, duration_minutes, required_staff_type
		FROM services
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var svc model.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.DurationMinutes, &svc.RequiredStaffType); err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func (s *Store) GetStaff(ctx context.Context, id string) (model.Staff, error) {
	return getStaff(ctx, s.db, id)
}

func (s *Store) ListStaff(ctx context.Context, filter model.StaffFilter) ([]model.Staff, error) {
	ds := dialect.From("staff").
		Select("id", "name", "service_type", "daily_capacity", "status").
		Order(goqu.I("name").Asc()).
		Prepared(true)
	if filter.Type != "" {
		ds = ds.Where(goqu.Ex{"service_type": filter.Type})
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build staff query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Staff
	for rows.Next() {
		st, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) ListStaffTypes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT service_type FROM staff ORDER BY service_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetAppointment(ctx context.Context, id string) (model.AppointmentDetail, error) {
	query, args, err := detailQuery().Where(goqu.Ex{"a.id": id}).ToSQL()
	if err != nil {
		return model.AppointmentDetail{}, fmt.Errorf("build appointment query: %w", err)
	}
	d, err := scanDetail(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.AppointmentDetail{}, scheduling.ErrNotFound
	}
	return d, err
}

func (s *Store) ListAppointments(ctx context.Context, filter model.AppointmentFilter) ([]model.AppointmentDetail, error) {
	ds := detailQuery().Order(goqu.I("a.appointment_date").Asc(), goqu.I("a.appointment_time").Asc(), goqu.I("a.created_at").Asc())
	if filter.Date != "" {
		ds = ds.Where(goqu.Ex{"a.appointment_date": filter.Date})
	}
	if filter.StaffID != "" {
		ds = ds.Where(goqu.Ex{"a.staff_id": filter.StaffID})
	}
	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"a.status": string(filter.Status)})
	}
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build appointments query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AppointmentDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) ListQueue(ctx context.Context) ([]model.QueueEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.appointment_id, q.position, a.customer_name, a.appointment_date, a.appointment_time,
			a.service_id, s.name, s.required_staff_type
		FROM queue_entries q
		JOIN appointments a ON a.id = q.appointment_id
		JOIN services s ON s.id = a.service_id
		ORDER BY q.position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.QueueEntry
	for rows.Next() {
		var e model.QueueEntry
		if err := rows.Scan(&e.AppointmentID, &e.Position, &e.CustomerName, &e.Date, &e.Time,
			&e.ServiceID, &e.ServiceName, &e.RequiredStaffType); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) StaffDay(ctx context.Context, staffID, date string) ([]model.Booking, error) {
	return staffDay(ctx, s.db, staffID, date)
}

// Record implements activity.Sink.
func (s *Store) Record(ctx context.Context, e activity.Entry) error {
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_log (action, appointment_id, actor, message, created_at)
		VALUES (?, NULLIF(?, ''), ?, ?, ?)
	`, string(e.Action), e.AppointmentID, e.Actor, e.Message, formatTime(at))
	return err
}

// UpsertService and UpsertStaff load catalog rows. The scheduler itself never edits them;
// they arrive from seeding or from catalog change events.
func (s *Store) UpsertService(ctx context.Context, svc model.Service) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO services (id, name, duration_minutes, required_staff_type)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			duration_minutes = excluded.duration_minutes,
			required_staff_type = excluded.required_staff_type
	`, svc.ID, svc.Name, svc.DurationMinutes, svc.RequiredStaffType)
	return err
}

func (s *Store) UpsertStaff(ctx context.Context, st model.Staff) error {
	status := st.Status
	if status == "" {
		status = model.StaffAvailable
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO staff (id, name, service_type, daily_capacity, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			service_type = excluded.service_type,
			daily_capacity = excluded.daily_capacity,
			status = excluded.status
	`, st.ID, st.Name, st.ServiceType, st.DailyCapacity, string(status))
	return err
}

func detailQuery() *goqu.SelectDataset {
	return dialect.From(goqu.T("appointments").As("a")).
		Select(
			goqu.I("a.id"),
			goqu.I("a.customer_name"),
			goqu.I("a.service_id"),
			goqu.L("COALESCE(a.staff_id, '')"),
			goqu.I("a.appointment_date"),
			goqu.I("a.appointment_time"),
			goqu.I("a.status"),
			goqu.I("a.created_at"),
			goqu.I("a.updated_at"),
			goqu.I("s.name"),
			goqu.I("s.duration_minutes"),
			goqu.L("COALESCE(st.name, '')"),
			goqu.L("COALESCE(q.position, 0)"),
		).
		Join(goqu.T("services").As("s"), goqu.On(goqu.I("s.id").Eq(goqu.I("a.service_id")))).
		LeftJoin(goqu.T("staff").As("st"), goqu.On(goqu.I("st.id").Eq(goqu.I("a.staff_id")))).
		LeftJoin(goqu.T("queue_entries").As("q"), goqu.On(goqu.I("q.appointment_id").Eq(goqu.I("a.id")))).
		Prepared(true)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDetail(row scanner) (model.AppointmentDetail, error) {
	var (
		d         model.AppointmentDetail
		status    string
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&d.ID, &d.CustomerName, &d.ServiceID, &d.StaffID, &d.Date, &d.Time, &status,
		&createdAt, &updatedAt, &d.ServiceName, &d.DurationMinutes, &d.StaffName, &d.QueuePosition); err != nil {
		return model.AppointmentDetail{}, err
	}
	d.Status = model.Status(status)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return d, nil
}

func scanStaff(row scanner) (model.Staff, error) {
	var (
		st     model.Staff
		status string
	)
	if err := row.Scan(&st.ID, &st.Name, &st.ServiceType, &st.DailyCapacity, &status); err != nil {
		return model.Staff{}, err
	}
	st.Status = model.StaffStatus(status)
	return st, nil
}

func getService(ctx context.Context, q queryer, id string) (model.Service, error) {
	var svc model.Service
	err := q.QueryRowContext(ctx, `
		SELECT id, name, duration_minutes, required_staff_type
		FROM services
		WHERE id = ?
	`, id).Scan(&svc.ID, &svc.Name, &svc.DurationMinutes, &svc.RequiredStaffType)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Service{}, scheduling.ErrNotFound
	}
	return svc, err
}

func getStaff(ctx context.Context, q queryer, id string) (model.Staff, error) {
	st, err := scanStaff(q.QueryRowContext(ctx, `
		SELECT id, name, service_type, daily_capacity, status
		FROM staff
		WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Staff{}, scheduling.ErrNotFound
	}
	return st, err
}

func staffDay(ctx context.Context, q queryer, staffID, date string) ([]model.Booking, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT a.id, a.customer_name, a.appointment_time, s.duration_minutes, a.status
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		WHERE a.staff_id = ? AND a.appointment_date = ? AND a.status <> 'cancelled'
		ORDER BY a.appointment_time
	`, staffID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		var (
			b      model.Booking
			status string
		)
		if err := rows.Scan(&b.AppointmentID, &b.CustomerName, &b.Time, &b.DurationMinutes, &status); err != nil {
			return nil, err
		}
		b.Status = model.Status(status)
		out = append(out, b)
	}
	return out, rows.Err()
}

// timeLayout is fixed width so that text ordering on timestamp columns matches time
// ordering. RFC3339Nano trims trailing zeros and would sort "00.5Z" before "00Z".
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime also reads rows written before timeLayout, which RFC3339Nano covers.
func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
