package outbox

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	otelx "github.com/TariqulIslam2/Smart-Appointment-Manager/libs/otel"
)

var dialect = goqu.Dialect("postgres")

const table = "outbox_events"

// execer is satisfied by pgx.Tx and *db.Pool.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository builds outbox statements. It holds no connection; every method runs on
// the handle it is given so inserts share the caller's transaction.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Insert writes evt inside the caller's transaction together with the current trace context.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, evt Event) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	query, args, err := insertQuery(evt, traceparent, tracestate)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, query, args...)
	return err
}

func insertQuery(evt Event, traceparent, tracestate string) (string, []any, error) {
	return dialect.Insert(table).Prepared(true).Rows(goqu.Record{
		"aggregate_type": evt.AggregateType,
		"aggregate_id":   evt.AggregateID,
		"event_type":     evt.EventType,
		"payload":        string(evt.Payload),
		"traceparent":    traceparent,
		"tracestate":     tracestate,
	}).ToSQL()
}

type Record struct {
	ID          int64
	EventID     string
	AggregateID string
	EventType   string
	Payload     []byte
	Traceparent string
	Tracestate  string
	CreatedAt   time.Time
}

// FetchUnpublished locks up to limit pending rows. SKIP LOCKED lets several
// publishers drain the table without double sending.
func (r *Repository) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	query, args, err := fetchQuery(limit)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rcd Record
		if err := rows.Scan(&rcd.ID, &rcd.EventID, &rcd.AggregateID, &rcd.EventType, &rcd.Payload, &rcd.Traceparent, &rcd.Tracestate, &rcd.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rcd)
	}
	return records, rows.Err()
}

func fetchQuery(limit int) (string, []any, error) {
	return dialect.From(table).Prepared(true).
		Select(
			goqu.C("id"),
			goqu.L("event_id::text"),
			goqu.C("aggregate_id"),
			goqu.C("event_type"),
			goqu.C("payload"),
			goqu.C("traceparent"),
			goqu.C("tracestate"),
			goqu.C("created_at"),
		).
		Where(goqu.C("published_at").IsNull()).
		Order(goqu.C("id").Asc()).
		Limit(uint(limit)).
		ForUpdate(exp.SkipLocked).
		ToSQL()
}

func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := dialect.Update(table).Prepared(true).
		Set(goqu.Record{"published_at": goqu.L("now()")}).
		Where(goqu.C("id").In(ids)).
		ToSQL()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, query, args...)
	return err
}

// DeletePublished removes rows published before cutoff and reports how many went.
func (r *Repository) DeletePublished(ctx context.Context, db execer, cutoff time.Time) (int64, error) {
	query, args, err := dialect.Delete(table).Prepared(true).
		Where(
			goqu.C("published_at").IsNotNull(),
			goqu.C("published_at").Lt(cutoff),
		).
		ToSQL()
	if err != nil {
		return 0, err
	}
	tag, err := db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
