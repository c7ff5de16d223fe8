package runtime

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// readyTimeout bounds each check so one hung broker cannot stall the probe.
const readyTimeout = 2 * time.Second

// NewBaseMuxWithReady serves /healthz unconditionally and /readyz from checks. The
// checks run concurrently and failures are reported in registration order.
func NewBaseMuxWithReady(checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeProbe(w, http.StatusOK, "ok")
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if failures := runChecks(r.Context(), checks); len(failures) > 0 {
			writeProbe(w, http.StatusServiceUnavailable, strings.Join(failures, "; "))
			return
		}
		writeProbe(w, http.StatusOK, "ok")
	})
	return mux
}

func runChecks(ctx context.Context, checks []ReadyCheck) []string {
	results := make([]error, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		if check.Check == nil {
			continue
		}
		wg.Add(1)
		go func(i int, fn func(context.Context) error) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, readyTimeout)
			defer cancel()
			results[i] = fn(checkCtx)
		}(i, check.Check)
	}
	wg.Wait()

	var failures []string
	for i, err := range results {
		if err == nil {
			continue
		}
		name := checks[i].Name
		if name == "" {
			name = "dependency"
		}
		failures = append(failures, name+": "+err.Error())
	}
	return failures
}

func writeProbe(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}
