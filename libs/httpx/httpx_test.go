package httpx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChainAppliesInOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), tag("a"), tag("b"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got := strings.Join(order, ","); got != "a,b,handler" {
		t.Fatalf("unexpected order %s", got)
	}
}

func TestRequestIDKeepsOrReplacesHeader(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if seen != "abc-123" || rw.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("caller id not kept: ctx=%q header=%q", seen, rw.Header().Get(RequestIDHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLen+1))
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if len(seen) != 36 || rw.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("oversized id should be replaced with a uuid, got %q", seen)
	}
}

func TestRateLimiterRejectsWithRetryAfter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	call := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/queue", nil)
		req.RemoteAddr = addr
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		return rw
	}

	for i := 0; i < 2; i++ {
		if rw := call("10.0.0.1:5000"); rw.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i, rw.Code)
		}
	}
	rw := call("10.0.0.1:5001")
	if rw.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rw.Code)
	}
	if rw.Header().Get("Retry-After") != "60" {
		t.Fatalf("unexpected Retry-After %q", rw.Header().Get("Retry-After"))
	}
	if rw := call("10.0.0.2:5000"); rw.Code != http.StatusNoContent {
		t.Fatalf("other clients keep their own budget, got %d", rw.Code)
	}

	now = now.Add(time.Minute + time.Second)
	if rw := call("10.0.0.1:5000"); rw.Code != http.StatusNoContent {
		t.Fatalf("window should reset, got %d", rw.Code)
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["10.0.0.2"]; ok {
		t.Fatalf("expired visitor should have been swept")
	}
}

func TestCORSPreflight(t *testing.T) {
	h := WithCORS(CORSPolicy{
		AllowedOrigins: []string{"https://front.example.com"},
		AllowedMethods: []string{"GET", "POST"},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         10 * time.Minute,
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/appointments", nil)
	req.Header.Set("Origin", "https://front.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", rw.Code)
	}
	if rw.Header().Get("Access-Control-Allow-Origin") != "https://front.example.com" ||
		rw.Header().Get("Access-Control-Expose-Headers") != RequestIDHeader ||
		rw.Header().Get("Access-Control-Max-Age") != "600" {
		t.Fatalf("unexpected headers %v", rw.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusTeapot || rw.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin should pass through untouched, got %d %v", rw.Code, rw.Header())
	}
}

func TestCORSWildcardSubdomain(t *testing.T) {
	cases := map[string]bool{
		"https://app.example.com":      true,
		"https://a.b.example.com":      true,
		"https://example.com":          false,
		"http://app.example.com":       false,
		"https://app.example.com.evil": false,
		"https://evilexample.com":      false,
	}
	for origin, want := range cases {
		_, got := matchOrigin(origin, []string{"https://*.example.com"}, true)
		if got != want {
			t.Errorf("origin %s: expected %v, got %v", origin, want, got)
		}
	}
}

func TestRecoverReturns500(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), WithRequestID, WithRecover(discardLogger()))

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rw.Code)
	}
}

func TestRedisRateLimiter(t *testing.T) {
	addr := os.Getenv("SCHEDULING_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SCHEDULING_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	prefix := fmt.Sprintf("test:rl:%d", time.Now().UnixNano())
	t.Cleanup(func() { _ = rdb.Del(context.Background(), prefix+":10.0.0.9").Err() })

	h := NewRedisRateLimiter(rdb, 1, time.Minute, prefix).Middleware(discardLogger(), false)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)
	call := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.9, 172.16.0.1")
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		return rw
	}
	if rw := call(); rw.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rw.Code)
	}
	rw := call()
	if rw.Code != http.StatusTooManyRequests || rw.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d %v", rw.Code, rw.Header())
	}
}
