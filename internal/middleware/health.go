package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

type HealthChecker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to HealthChecker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

// DatabaseHealthChecker pings the history database.
type DatabaseHealthChecker struct {
	DB *sql.DB
}

func (d *DatabaseHealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.DB.PingContext(ctx)
}

// CredentialChecker reports whether the analysis credential was resolved at startup.
// It makes no network call.
type CredentialChecker struct {
	Present bool
}

func (c CredentialChecker) Check(context.Context) error {
	if !c.Present {
		return errors.New("GROQ API key not configured")
	}
	return nil
}

type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
}

type CheckStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// RunChecks runs the named checkers concurrently. With no names every checker runs.
// Names without a checker are skipped.
func RunChecks(ctx context.Context, checkers map[string]HealthChecker, names ...string) HealthStatus {
	if len(names) == 0 {
		for name := range checkers {
			names = append(names, name)
		}
	}

	report := HealthStatus{
		Status:    statusHealthy,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]CheckStatus, len(names)),
	}
	var mu sync.Mutex
	var g errgroup.Group
	for _, name := range names {
		checker, ok := checkers[name]
		if !ok {
			continue
		}
		g.Go(func() error {
			st := CheckStatus{Status: statusHealthy}
			if err := checker.Check(ctx); err != nil {
				st = CheckStatus{Status: statusUnhealthy, Message: err.Error()}
			}
			mu.Lock()
			defer mu.Unlock()
			report.Checks[name] = st
			if st.Status == statusUnhealthy {
				report.Status = statusUnhealthy
			}
			return nil
		})
	}
	_ = g.Wait()
	return report
}

func writeReport(w http.ResponseWriter, report HealthStatus) {
	code := http.StatusOK
	if report.Status == statusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(report)
}

// HealthHandler reports every checker; any failure answers 503.
func HealthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		writeReport(w, RunChecks(ctx, checkers))
	}
}

// ReadinessHandler only runs the required checkers. A missing Groq key still
// leaves the service able to serve pages and extraction, so it is not required.
func ReadinessHandler(checkers map[string]HealthChecker, required ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		report := RunChecks(ctx, checkers, required...)
		if report.Status == statusHealthy {
			report.Status = "ready"
		}
		writeReport(w, report)
	}
}

func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
