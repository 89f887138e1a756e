// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, readiness checks and graceful shutdown.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("workspace_id", 7).Info("member removed")
//
// Request-scoped loggers carry the request ID, user ID and trace IDs:
//
//	observability.FromContext(r.Context()).WithError(err).Warn("activity write failed")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordAuthzDecision("action", "allow")
//
// The recording helpers accept a nil *Metrics so libraries can run without
// a registry in tests.
//
// # Tracing
//
// InitOTel installs OTLP/gRPC trace and metric providers. StartSpan and
// EndSpan are thin wrappers over the global tracer and are no-ops until
// InitOTel runs.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version, observability.DatabaseCheck(db))
//	checker.RegisterRoutes(router) // /healthz, /readyz
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/middleware: Request ID and access guard instrumentation
package observability
