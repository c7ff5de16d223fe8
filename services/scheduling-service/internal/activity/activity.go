package activity

import (
	"context"
	"log/slog"
	"time"
)

type Action string

const (
	ActionScheduled    Action = "scheduled"
	ActionQueued       Action = "queued"
	ActionAssigned     Action = "assigned"
	ActionAutoAssigned Action = "auto_assigned"
	ActionUpdated      Action = "updated"
	ActionDeleted      Action = "deleted"
)

// Entry is one human readable line of the activity log.
type Entry struct {
	Action        Action    `json:"action"`
	AppointmentID string    `json:"appointment_id"`
	Actor         string    `json:"actor"`
	Message       string    `json:"message"`
	At            time.Time `json:"at"`
}

// Sink receives entries after the mutation they describe has committed.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// LogSink writes entries to the service log.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Record(ctx context.Context, e Entry) error {
	s.Logger.InfoContext(ctx, e.Message,
		"action", string(e.Action),
		"appointment_id", e.AppointmentID,
		"actor", e.Actor,
	)
	return nil
}

type ctxKey int

const ctxKeyActor ctxKey = iota

const defaultActor = "system"

func WithActor(ctx context.Context, actor string) context.Context {
	if actor == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyActor, actor)
}

func ActorFromContext(ctx context.Context) string {
	if v, _ := ctx.Value(ctxKeyActor).(string); v != "" {
		return v
	}
	return defaultActor
}
