package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/db"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/model"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/scheduling"
)

//go:embed schema.sql
var schemaSQL string

var dialect = goqu.Dialect("postgres")

type Store struct {
	pool *db.Pool
}

type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func NewStore(pool *db.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate applies the schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx scheduling.Tx) error) error {
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = pgTx.Rollback(ctx) }()

	if err := fn(ctx, &txStore{tx: pgTx}); err != nil {
		return classify(err)
	}
	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", classify(err))
	}
	return nil
}

func (s *Store) GetService(ctx context.Context, id string) (model.Service, error) {
	return getService(ctx, s.pool, id)
}

func (s *Store) ListServices(ctx context.Context) ([]model.Service, error) {
	rows, err := s.pool.Query(ctx, `
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
	return getStaff(ctx, s.pool, id, false)
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

	rows, err := s.pool.Query(ctx, query, args...)
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
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT service_type FROM staff ORDER BY service_type`)
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
	d, err := scanDetail(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.AppointmentDetail{}, scheduling.ErrNotFound
	}
	return d, err
}

func (s *Store) ListAppointments(ctx context.Context, filter model.AppointmentFilter) ([]model.AppointmentDetail, error) {
	ds := detailQuery().Order(goqu.I("a.appointment_date").Asc(), goqu.I("a.appointment_time").Asc(), goqu.I("a.created_at").Asc())
	if filter.Date != "" {
		ds = ds.Where(goqu.I("a.appointment_date").Eq(goqu.L("?::date", filter.Date)))
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

	rows, err := s.pool.Query(ctx, query, args...)
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
	rows, err := s.pool.Query(ctx, `
		SELECT q.appointment_id, q.position, a.customer_name, a.appointment_date::text,
			to_char(a.appointment_time, 'HH24:MI'), a.service_id, s.name, s.required_staff_type
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
	return staffDay(ctx, s.pool, staffID, date)
}

func (s *Store) UpsertService(ctx context.Context, svc model.Service) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO services (id, name, duration_minutes, required_staff_type)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			duration_minutes = EXCLUDED.duration_minutes,
			required_staff_type = EXCLUDED.required_staff_type
	`, svc.ID, svc.Name, svc.DurationMinutes, svc.RequiredStaffType)
	return classify(err)
}

func (s *Store) UpsertStaff(ctx context.Context, st model.Staff) error {
	status := st.Status
	if status == "" {
		status = model.StaffAvailable
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO staff (id, name, service_type, daily_capacity, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			service_type = EXCLUDED.service_type,
			daily_capacity = EXCLUDED.daily_capacity,
			status = EXCLUDED.status
	`, st.ID, st.Name, st.ServiceType, st.DailyCapacity, string(status))
	return classify(err)
}

func detailQuery() *goqu.SelectDataset {
	return dialect.From(goqu.T("appointments").As("a")).
		Select(
			goqu.I("a.id"),
			goqu.I("a.customer_name"),
			goqu.I("a.service_id"),
			goqu.L("COALESCE(a.staff_id, '')"),
			goqu.L("a.appointment_date::text"),
			goqu.L("to_char(a.appointment_time, 'HH24:MI')"),
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

func scanDetail(row pgx.Row) (model.AppointmentDetail, error) {
	var (
		d      model.AppointmentDetail
		status string
	)
	if err := row.Scan(&d.ID, &d.CustomerName, &d.ServiceID, &d.StaffID, &d.Date, &d.Time, &status,
		&d.CreatedAt, &d.UpdatedAt, &d.ServiceName, &d.DurationMinutes, &d.StaffName, &d.QueuePosition); err != nil {
		return model.AppointmentDetail{}, err
	}
	d.Status = model.Status(status)
	return d, nil
}

func scanStaff(row pgx.Row) (model.Staff, error) {
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
	err := q.QueryRow(ctx, `
		SELECT id, name, duration_minutes, required_staff_type
		FROM services
		WHERE id = $1
	`, id).Scan(&svc.ID, &svc.Name, &svc.DurationMinutes, &svc.RequiredStaffType)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Service{}, scheduling.ErrNotFound
	}
	return svc, err
}

func getStaff(ctx context.Context, q queryer, id string, forUpdate bool) (model.Staff, error) {
	query := `
		SELECT id, name, service_type, daily_capacity, status
		FROM staff
		WHERE id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}
	st, err := scanStaff(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Staff{}, scheduling.ErrNotFound
	}
	return st, err
}

func staffDay(ctx context.Context, q queryer, staffID, date string) ([]model.Booking, error) {
	rows, err := q.Query(ctx, `
		SELECT a.id, a.customer_name, to_char(a.appointment_time, 'HH24:MI'), s.duration_minutes, a.status
		FROM appointments a
		JOIN services s ON s.id = a.service_id
		WHERE a.staff_id = $1 AND a.appointment_date = $2::date AND a.status <> 'cancelled'
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

// classify turns constraint violations the engine should have prevented into
// business errors instead of internal ones.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23514":
		return &scheduling.Error{Kind: scheduling.KindInvalidInput, Message: "appointment violates " + pgErr.ConstraintName, Err: err}
	case "23503":
		return &scheduling.Error{Kind: scheduling.KindNotFound, Message: "referenced row does not exist", Err: err}
	}
	return err
}
