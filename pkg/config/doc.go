// Package config loads application configuration.
//
// # Sources
//
// Values come from built-in defaults, then the YAML file named by
// QUILL_CONFIG_FILE (if set), then QUILL_* environment variables. Later
// sources win.
//
//	server:
//	  port: "8080"
//	  base_url: https://app.example.com
//	invitations:
//	  ttl: 168h
//	  reap_schedule: "@hourly"
//
// # Environment
//
// Server settings:
//
//	QUILL_HOST="0.0.0.0"
//	QUILL_PORT="8080"
//	QUILL_HEALTH_PORT="9090"
//	QUILL_BASE_URL="https://app.example.com"
//	QUILL_ALLOWED_ORIGINS="https://app.example.com,https://admin.example.com"
//
// Storage and auth:
//
//	QUILL_DATABASE_URL="postgres://localhost/quill?sslmode=disable"
//	QUILL_REDIS_URL="redis://localhost:6379/0"  # optional, shared rate limits
//	QUILL_TOKEN_SECRET="..."                     # at least 32 bytes
//
// Workspace access and invitations:
//
//	QUILL_RESOLVE_TIMEOUT="3s"
//	QUILL_INVITATION_TTL="168h"
//	QUILL_INVITATION_REAP_GRACE="720h"
//
// Email (delivery is logged instead of sent when QUILL_SMTP_HOST is empty):
//
//	QUILL_SMTP_HOST="smtp.example.com"
//	QUILL_SMTP_PORT="587"
//	QUILL_SMTP_FROM="noreply@example.com"
//
// Observability:
//
//	QUILL_LOG_LEVEL="info"  # debug, info, warn, error
//	QUILL_METRICS_ENABLED="true"
//	QUILL_OTEL_ENABLED="true"
//	QUILL_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
package config
