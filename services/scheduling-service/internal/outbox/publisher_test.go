package outbox

import (
	"context"
	"testing"

	"github.com/TariqulIslam2/Smart-Appointment-Manager/libs/kafkax"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestToMessageCarriesMetaAndTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceparent := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	msg := toMessage(context.Background(), Record{
		ID:          7,
		EventID:     "evt-1",
		AggregateID: "appt-1",
		EventType:   "scheduling.appointment.queued.v1",
		Payload:     []byte(`{"message":"queued"}`),
		Traceparent: traceparent,
	})

	if msg.Topic != "scheduling.appointment.queued.v1" || string(msg.Key) != "appt-1" {
		t.Fatalf("unexpected routing: topic=%q key=%q", msg.Topic, msg.Key)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != "scheduling.appointment.queued.v1" {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if got := kafkax.HeaderValue(msg.Headers, "traceparent"); got != traceparent {
		t.Fatalf("expected traceparent header %q, got %q", traceparent, got)
	}
}
