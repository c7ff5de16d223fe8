package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
)

type sliceReader struct {
	msgs   []kafka.Message
	cancel context.CancelFunc
	closed bool
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *sliceReader) Close() error {
	r.closed = true
	return nil
}

type memoryInbox struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memoryInbox) Record(_ context.Context, eventID, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

func TestRunSkipsDuplicatesAndKeepsGoingAfterErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	header := func(id string) []kafka.Header {
		return []kafka.Header{{Key: "event_id", Value: []byte(id)}, {Key: "event_type", Value: []byte("catalog.staff.upserted.v1")}}
	}
	reader := &sliceReader{
		cancel: cancel,
		msgs: []kafka.Message{
			{Topic: "catalog.events", Headers: header("e1"), Value: []byte("fail")},
			{Topic: "catalog.events", Headers: header("e1"), Value: []byte("dup")},
			{Topic: "catalog.events", Headers: header("e2"), Value: []byte("ok")},
		},
	}

	var handled []string
	c := NewWithReader(slog.New(slog.NewTextHandler(io.Discard, nil)), &memoryInbox{seen: map[string]bool{}}, reader,
		func(_ context.Context, msg kafka.Message) error {
			handled = append(handled, string(msg.Value))
			if string(msg.Value) == "fail" {
				return errors.New("boom")
			}
			return nil
		})
	c.Run(ctx)

	if len(handled) != 2 || handled[0] != "fail" || handled[1] != "ok" {
		t.Fatalf("unexpected handled messages %v", handled)
	}
	if !reader.closed {
		t.Fatal("reader should be closed when Run returns")
	}
}
