// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//
//	import "github.com/platinummonkey/quill/pkg/auth"
//	ctx = auth.WithIdentity(ctx, identity)
//	identity := auth.IdentityFromContext(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AuthKey contains *auth.Identity
	// Set by: middleware.Authenticator (pkg/middleware/auth.go)
	// Required by: All protected API endpoints, access guards
	// Type: *auth.Identity
	AuthKey Key = "auth_identity"

	// WorkspaceKey contains *workspaces.Context
	// Set by: middleware.AccessGuard (pkg/middleware/guard.go)
	// Required by: Workspace-scoped handlers
	// Type: *workspaces.Context
	WorkspaceKey Key = "workspace_context"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, activity trail, distributed tracing
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey contains user ID string
	// Set by: Auth middleware after user authentication
	// Used by: Logger
	// Type: string
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	// Set by: Observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// WithAuth adds the authenticated identity to the context
func WithAuth(ctx context.Context, identity interface{}) context.Context {
	return context.WithValue(ctx, AuthKey, identity)
}

// WithWorkspace adds the resolved workspace context to the context
func WithWorkspace(ctx context.Context, ws interface{}) context.Context {
	return context.WithValue(ctx, WorkspaceKey, ws)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}
