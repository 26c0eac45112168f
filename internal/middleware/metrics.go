package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// counters behind /metrics
type counters struct {
	requests, inFlight, succeeded, failed   atomic.Uint64
	extractions, unsupported, unreadable    atomic.Uint64
	analyses, analysesRunning, analysesFail atomic.Uint64
	started                                 time.Time
}

var stats = &counters{started: time.Now()}

// RecordExtraction counts one extraction attempt.
func RecordExtraction(unsupported bool, err error) {
	stats.extractions.Add(1)
	switch {
	case err != nil:
		stats.unreadable.Add(1)
	case unsupported:
		stats.unsupported.Add(1)
	}
}

// StartAnalysis counts an outbound analysis call; the returned func marks it done.
func StartAnalysis() func(err error) {
	stats.analyses.Add(1)
	stats.analysesRunning.Add(1)
	return func(err error) {
		stats.analysesRunning.Add(^uint64(0))
		if err != nil {
			stats.analysesFail.Add(1)
		}
	}
}

// GetMetrics snapshots the counters plus runtime figures.
func GetMetrics() map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]interface{}{
		"requests_total":          stats.requests.Load(),
		"requests_in_progress":    stats.inFlight.Load(),
		"requests_success":        stats.succeeded.Load(),
		"requests_failed":         stats.failed.Load(),
		"extractions_total":       stats.extractions.Load(),
		"extractions_unsupported": stats.unsupported.Load(),
		"extractions_failed":      stats.unreadable.Load(),
		"analyses_total":          stats.analyses.Load(),
		"analyses_running":        stats.analysesRunning.Load(),
		"analyses_failed":         stats.analysesFail.Load(),
		"uptime_seconds":          time.Since(stats.started).Seconds(),
		"goroutines":              runtime.NumGoroutine(),
		"heap_alloc_bytes":        mem.HeapAlloc,
	}
}

// MetricsMiddleware counts requests; 4xx and 5xx count as failed.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats.requests.Add(1)
		stats.inFlight.Add(1)
		defer stats.inFlight.Add(^uint64(0))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		if rw.statusCode < http.StatusBadRequest {
			stats.succeeded.Add(1)
		} else {
			stats.failed.Add(1)
		}
	})
}

func MetricsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetMetrics())
}
