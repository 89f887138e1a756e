package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	AuthzDecisionsTotal *prometheus.CounterVec
	ResolveDuration     *prometheus.HistogramVec

	// Invitation metrics
	InvitationsTotal     *prometheus.CounterVec
	EmailDeliveriesTotal *prometheus.CounterVec

	// Activity log metrics
	ActivityWritesTotal *prometheus.CounterVec

	// Rate limiting
	RateLimitedTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quill_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_authz_decisions_total",
				Help: "Total number of access guard decisions",
			},
			[]string{"check", "outcome"},
		),
		ResolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quill_workspace_resolve_duration_seconds",
				Help:    "Workspace resolution duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"outcome"},
		),

		InvitationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_invitations_total",
				Help: "Invitation lifecycle events",
			},
			[]string{"event"},
		),
		EmailDeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_email_deliveries_total",
				Help: "Outbound email delivery attempts",
			},
			[]string{"template", "status"},
		),

		ActivityWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_activity_writes_total",
				Help: "Activity log append attempts",
			},
			[]string{"status"},
		),

		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"scope"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDecisionsTotal,
		m.ResolveDuration,
		m.InvitationsTotal,
		m.EmailDeliveriesTotal,
		m.ActivityWritesTotal,
		m.RateLimitedTotal,
	)

	return m
}

// RecordAuthzDecision counts an access guard outcome.
// All recording helpers are safe to call on a nil *Metrics.
func (m *Metrics) RecordAuthzDecision(check, outcome string) {
	if m == nil {
		return
	}
	m.AuthzDecisionsTotal.WithLabelValues(check, outcome).Inc()
}

// ObserveResolve records how long a workspace resolution took
func (m *Metrics) ObserveResolve(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ResolveDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordInvitation counts an invitation lifecycle event
func (m *Metrics) RecordInvitation(event string) {
	if m == nil {
		return
	}
	m.InvitationsTotal.WithLabelValues(event).Inc()
}

// AddInvitations counts n invitation lifecycle events at once
func (m *Metrics) AddInvitations(event string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.InvitationsTotal.WithLabelValues(event).Add(float64(n))
}

// RecordEmailDelivery counts an email delivery attempt
func (m *Metrics) RecordEmailDelivery(template string, err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.EmailDeliveriesTotal.WithLabelValues(template, status).Inc()
}

// RecordActivityWrite counts an activity log append
func (m *Metrics) RecordActivityWrite(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.ActivityWritesTotal.WithLabelValues(status).Inc()
}

// RecordRateLimited counts a rejected request
func (m *Metrics) RecordRateLimited(scope string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(scope).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// routeLabel returns the mux route template so path parameters do not
// explode label cardinality
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration)
		})
	}
}

// MetricsHandler returns the /metrics handler for the registry
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
