// Package middleware provides HTTP middleware for authentication, workspace
// access checks and rate limiting.
//
// # Authentication
//
// Authenticator verifies "Authorization: Bearer <token>" and attaches the
// caller's auth.Identity. Requests without the header continue anonymously;
// RequireAuthentication and the guards reject them with 401.
//
// # Access Guard
//
// AccessGuard resolves the caller's workspace context (the default one, or
// the workspace named by the X-Workspace-ID header) and checks it:
//
//	r.Handle("/api/workspace/members",
//		guard.RequireMinimumRole(rbac.RoleViewer)(listMembers))
//	r.Handle("/api/workspace/invitations",
//		guard.RequireAction(rbac.ActionInviteMember)(createInvitation))
//
// Failures respond with:
//
//	401 {"success":false,"error":"Authentication required"}
//	403 {"success":false,"error":"No workspace access"}
//	403 {"success":false,"error":"Requires admin or higher","currentRole":"editor"}
//	403 {"success":false,"error":"Permission denied: invite_member","currentRole":"viewer"}
//	503 when the workspace store is unavailable or slow
//
// On success the workspaces.Context is attached to the request context.
//
// # Rate Limiting
//
// RateLimit keys requests by user ID, or by client IP for anonymous callers.
// RedisLimiter shares a fixed window across instances; MemoryLimiter is a
// per-process token bucket used when Redis is not configured. Limiter errors
// fail open.
//
// # Related Packages
//
//   - pkg/auth: Token verification
//   - pkg/workspaces: Workspace resolution
//   - pkg/rbac: Permission checking
package middleware
