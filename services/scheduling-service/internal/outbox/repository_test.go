package outbox

import (
	"strings"
	"testing"
)

func TestFetchQueryLocksPendingRows(t *testing.T) {
	query, args, err := fetchQuery(25)
	if err != nil {
		t.Fatalf("build query: %v", err)
	}
	for _, want := range []string{`"published_at" IS NULL`, `ORDER BY "id" ASC`, "FOR UPDATE SKIP LOCKED"} {
		if !strings.Contains(query, want) {
			t.Fatalf("expected %q in %s", want, query)
		}
	}
	if len(args) != 1 {
		t.Fatalf("expected the limit as the only arg, got %v", args)
	}
}

func TestNewEventEncodesPayload(t *testing.T) {
	evt, err := NewEvent("appointment", "appt-1", "scheduling.appointment.deleted.v1", map[string]string{"actor": "frontdesk"})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if string(evt.Payload) != `{"actor":"frontdesk"}` {
		t.Fatalf("unexpected payload %s", evt.Payload)
	}
	query, args, err := insertQuery(evt, "", "")
	if err != nil {
		t.Fatalf("build insert: %v", err)
	}
	if !strings.HasPrefix(query, `INSERT INTO "outbox_events"`) || len(args) != 6 {
		t.Fatalf("unexpected insert %s %v", query, args)
	}

	if _, err := NewEvent("appointment", "appt-1", "x", make(chan int)); err == nil {
		t.Fatal("expected an encoding error for an unencodable payload")
	}
}
