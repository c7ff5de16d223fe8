package main

import (
	"io"
	"log/slog"
	"testing"
)

func TestOutboxWiringNeedsBrokers(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, brokers := range []string{"", "  "} {
		repo, workers := outboxWiring(nil, logger, brokers)
		if repo != nil || len(workers) != 0 {
			t.Fatalf("brokers %q: expected no outbox, got repo=%v workers=%d", brokers, repo, len(workers))
		}
	}

	repo, workers := outboxWiring(nil, logger, "kafka-1:9092,kafka-2:9092")
	if repo == nil || len(workers) != 1 {
		t.Fatalf("expected outbox and publisher, got repo=%v workers=%d", repo, len(workers))
	}
}
