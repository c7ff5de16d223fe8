package runtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadyzReportsFailingChecks(t *testing.T) {
	mux := NewBaseMuxWithReady(
		ReadyCheck{Name: "db", Check: func(context.Context) error { return nil }},
		ReadyCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
	)

	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rw.Code)
	}
	if !strings.Contains(rw.Body.String(), "redis: connection refused") {
		t.Fatalf("unexpected body %q", rw.Body.String())
	}

	rw = httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200 from healthz, got %d", rw.Code)
	}
}

func TestReadyzRunsChecksConcurrently(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	blocking := func(context.Context) error {
		entered <- struct{}{}
		<-release
		return nil
	}
	mux := NewBaseMuxWithReady(
		ReadyCheck{Name: "db", Check: blocking},
		ReadyCheck{Name: "kafka", Check: blocking},
		ReadyCheck{Name: "skipped"},
	)

	done := make(chan int)
	go func() {
		rw := httptest.NewRecorder()
		mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		done <- rw.Code
	}()

	// Both checks must be in flight before either returns.
	<-entered
	<-entered
	close(release)
	if code := <-done; code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}
