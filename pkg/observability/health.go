package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// ReadyTimeout bounds a whole /readyz evaluation
const ReadyTimeout = 5 * time.Second

// ErrDegraded marks a check result that should degrade readiness without
// failing it, even for a required check.
var ErrDegraded = errors.New("degraded")

// ReadinessCheck is one named condition evaluated by /readyz. A failing
// required check makes quill unready; an optional one only degrades it.
type ReadinessCheck struct {
	Name     string
	Required bool
	Run      func(ctx context.Context) error
}

// DatabaseCheck requires Postgres to answer a query and reports an exhausted
// pool as degraded
func DatabaseCheck(db *sql.DB) ReadinessCheck {
	return ReadinessCheck{
		Name:     "database",
		Required: true,
		Run: func(ctx context.Context) error {
			var one int
			if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
				return err
			}
			if stats := db.Stats(); stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
				return errors.Join(ErrDegraded, errors.New("connection pool exhausted"))
			}
			return nil
		},
	}
}

// RedisCheck reports the rate limit backend. Invite limiting fails open when
// Redis is down, so losing it only degrades readiness.
func RedisCheck(client *redis.Client) ReadinessCheck {
	return ReadinessCheck{
		Name: "redis",
		Run: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

// Readiness is the /readyz body
type Readiness struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	CheckedAt time.Time              `json:"checked_at"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of a single ReadinessCheck
type CheckResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthChecker serves /healthz and /readyz for the health listener
type HealthChecker struct {
	version string
	checks  []ReadinessCheck
}

// NewHealthChecker returns a checker that evaluates checks in order
func NewHealthChecker(version string, checks ...ReadinessCheck) *HealthChecker {
	return &HealthChecker{version: version, checks: checks}
}

// Check runs every readiness check. The overall status is the worst single
// outcome, with optional failures capped at degraded.
func (h *HealthChecker) Check(ctx context.Context) Readiness {
	ready := Readiness{
		Status:    StatusHealthy,
		Version:   h.version,
		CheckedAt: time.Now().UTC(),
		Checks:    make(map[string]CheckResult, len(h.checks)),
	}

	for _, check := range h.checks {
		start := time.Now()
		err := check.Run(ctx)
		result := CheckResult{Status: StatusHealthy, LatencyMS: time.Since(start).Milliseconds()}

		switch {
		case err == nil:
		case !check.Required:
			result.Status = StatusUnhealthy
		case errors.Is(err, ErrDegraded):
			result.Status = StatusDegraded
		default:
			result.Status = StatusUnhealthy
			ready.Status = StatusUnhealthy
		}
		if err != nil {
			result.Error = err.Error()
			if ready.Status == StatusHealthy {
				ready.Status = StatusDegraded
			}
		}
		ready.Checks[check.Name] = result
	}
	return ready
}

// Liveness answers 200 while the process can serve HTTP at all
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, map[string]string{"status": StatusHealthy})
}

// Readiness answers 503 only when a required check fails
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), ReadyTimeout)
	defer cancel()

	ready := h.Check(ctx)
	code := http.StatusOK
	if ready.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, ready)
}

// RegisterRoutes mounts /healthz and /readyz
func (h *HealthChecker) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", h.Readiness).Methods(http.MethodGet)
}

func writeHealth(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
