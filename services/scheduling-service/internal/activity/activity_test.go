package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestActorFromContext(t *testing.T) {
	if got := ActorFromContext(context.Background()); got != "system" {
		t.Fatalf("expected default actor, got %q", got)
	}
	ctx := WithActor(context.Background(), "frontdesk@example.com")
	if got := ActorFromContext(ctx); got != "frontdesk@example.com" {
		t.Fatalf("unexpected actor %q", got)
	}
	if got := ActorFromContext(WithActor(context.Background(), "")); got != "system" {
		t.Fatalf("empty actor should keep default, got %q", got)
	}
}

func TestLogSinkWritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	err := sink.Record(context.Background(), Entry{
		Action:        ActionQueued,
		AppointmentID: "appt-1",
		Actor:         "system",
		Message:       `Appointment for "Ada" added to queue at position 1`,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if line["msg"] != `Appointment for "Ada" added to queue at position 1` || line["action"] != "queued" || line["appointment_id"] != "appt-1" {
		t.Fatalf("unexpected log line %v", line)
	}
}

func TestEventType(t *testing.T) {
	if got := EventType(ActionAutoAssigned); got != "scheduling.appointment.auto_assigned.v1" {
		t.Fatalf("unexpected event type %q", got)
	}
}
