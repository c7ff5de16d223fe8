package activity

import (
	"context"
	"time"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/db"
	"github.com/TariqulIslam2/Smart-Appointment-Manager/services/scheduling-service/internal/outbox"
)

// Recorder appends entries to activity_log and, when an outbox is configured,
// emits a scheduling.appointment.<action>.v1 event in the same transaction.
type Recorder struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRecorder(pool *db.Pool, outboxRepo *outbox.Repository) *Recorder {
	return &Recorder{pool: pool, outbox: outboxRepo}
}

func (r *Recorder) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO activity_log (action, appointment_id, actor, message, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5)
	`, string(e.Action), e.AppointmentID, e.Actor, e.Message, e.At)
	if err != nil {
		return err
	}

	if r.outbox != nil {
		evt, err := outbox.NewEvent("appointment", e.AppointmentID, EventType(e.Action), e)
		if err != nil {
			return err
		}
		if err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func EventType(a Action) string {
	return "scheduling.appointment." + string(a) + ".v1"
}
