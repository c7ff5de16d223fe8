package inbox

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/db"
)

var dialect = goqu.Dialect("postgres")

// Repository remembers which Kafka events this service has already applied.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record reports false when eventID was already processed.
func (r *Repository) Record(ctx context.Context, eventID string, eventType string) (bool, error) {
	query, args, err := recordQuery(eventID, eventType)
	if err != nil {
		return false, err
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func recordQuery(eventID, eventType string) (string, []any, error) {
	return dialect.Insert("inbox_events").Prepared(true).
		Rows(goqu.Record{"event_id": eventID, "event_type": eventType}).
		OnConflict(goqu.DoNothing()).
		ToSQL()
}
