package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/platinummonkey/quill/pkg/auth"
	"github.com/platinummonkey/quill/pkg/httputil"
	"github.com/platinummonkey/quill/pkg/observability"
	"github.com/platinummonkey/quill/pkg/rbac"
	"github.com/platinummonkey/quill/pkg/workspaces"
)

// WorkspaceHeader selects a workspace explicitly instead of the default
const WorkspaceHeader = "X-Workspace-ID"

// DefaultResolveTimeout bounds workspace resolution per request
const DefaultResolveTimeout = 3 * time.Second

const (
	msgNoWorkspaceAccess = "No workspace access"
	msgResolveFailed     = "Workspace lookup temporarily unavailable"
)

// WorkspaceResolver computes the workspace context a user acts under
type WorkspaceResolver interface {
	Resolve(ctx context.Context, userID int64) (*workspaces.Context, error)
	ResolveIn(ctx context.Context, userID, workspaceID int64) (*workspaces.Context, error)
}

// AccessGuard turns workspace resolution and the permission matrix into
// request-level checks
type AccessGuard struct {
	resolver WorkspaceResolver
	timeout  time.Duration
	metrics  *observability.Metrics
}

// NewAccessGuard creates a new AccessGuard. metrics may be nil.
func NewAccessGuard(resolver WorkspaceResolver, timeout time.Duration, metrics *observability.Metrics) *AccessGuard {
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	return &AccessGuard{
		resolver: resolver,
		timeout:  timeout,
		metrics:  metrics,
	}
}

// RequireMinimumRole admits callers whose role in the resolved workspace is
// at least min and attaches the workspace context to the request
func (g *AccessGuard) RequireMinimumRole(min rbac.Role) func(http.Handler) http.Handler {
	const check = "min_role"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ws, ok := g.workspaceFor(w, r, check)
			if !ok {
				return
			}

			if err := rbac.RequireRole(ws.Role, min); err != nil {
				g.deny(w, r, check, err)
				return
			}

			g.metrics.RecordAuthzDecision(check, "allow")
			next.ServeHTTP(w, r.WithContext(workspaces.WithContext(r.Context(), ws)))
		})
	}
}

// RequireAction admits callers whose role may perform action. A workspace
// context already attached by an outer guard is reused.
//
// The resolved context is attached on success exactly as RequireMinimumRole
// attaches it, so the value a handler reads is the same whichever guard ran.
func (g *AccessGuard) RequireAction(action rbac.Action) func(http.Handler) http.Handler {
	const check = "action"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ws, ok := g.workspaceFor(w, r, check)
			if !ok {
				return
			}

			if err := rbac.Check(ws.Role, action, nil, identity.UserID); err != nil {
				g.deny(w, r, check, err)
				return
			}

			g.metrics.RecordAuthzDecision(check, "allow")
			next.ServeHTTP(w, r.WithContext(workspaces.WithContext(r.Context(), ws)))
		})
	}
}

// workspaceFor returns the caller and their workspace context, writing the
// error response itself when either is missing
func (g *AccessGuard) workspaceFor(w http.ResponseWriter, r *http.Request, check string) (*auth.Identity, *workspaces.Context, bool) {
	identity, err := auth.RequireIdentity(r.Context())
	if err != nil {
		g.deny(w, r, check, err)
		return nil, nil, false
	}

	var requested int64
	if header := r.Header.Get(WorkspaceHeader); header != "" {
		id, err := strconv.ParseInt(header, 10, 64)
		if err != nil || id <= 0 {
			httputil.WriteBadRequest(w, "Invalid "+WorkspaceHeader+" header")
			return nil, nil, false
		}
		requested = id
	}

	if ws := workspaces.FromContext(r.Context()); ws != nil && (requested == 0 || ws.WorkspaceID == requested) {
		return identity, ws, true
	}

	ctx, cancel := context.WithTimeout(r.Context(), g.timeout)
	defer cancel()

	var ws *workspaces.Context
	if requested != 0 {
		ws, err = g.resolver.ResolveIn(ctx, identity.UserID, requested)
	} else {
		ws, err = g.resolver.Resolve(ctx, identity.UserID)
	}
	if err != nil {
		g.deny(w, r, check, err)
		return nil, nil, false
	}
	return identity, ws, true
}

// deny writes the response for a failed check and records its outcome
func (g *AccessGuard) deny(w http.ResponseWriter, r *http.Request, check string, err error) {
	g.metrics.RecordAuthzDecision(check, writeDenial(w, r, err))
}

// writeDenial maps an authorization error to its JSON response and returns
// the decision label for metrics. Errors outside the authorization taxonomy
// are resolver faults and answer 503.
func writeDenial(w http.ResponseWriter, r *http.Request, err error) string {
	var roleErr *rbac.InsufficientRoleError
	var deniedErr *rbac.PermissionDeniedError

	switch {
	case errors.Is(err, auth.ErrAuthenticationRequired):
		httputil.WriteUnauthorized(w, msgAuthenticationRequired)
		return "unauthenticated"
	case errors.Is(err, workspaces.ErrNoWorkspaceAccess):
		httputil.WriteForbidden(w, msgNoWorkspaceAccess)
		return "no_access"
	case errors.As(err, &roleErr):
		httputil.WriteRoleError(w, http.StatusForbidden,
			fmt.Sprintf("Requires %s or higher", roleErr.Required), string(roleErr.Current))
		return "deny"
	case errors.As(err, &deniedErr):
		httputil.WriteRoleError(w, http.StatusForbidden,
			fmt.Sprintf("Permission denied: %s", deniedErr.Action), string(deniedErr.Role))
		return "deny"
	default:
		observability.FromContext(r.Context()).WithError(err).Error("workspace resolution failed")
		httputil.WriteServiceUnavailable(w, msgResolveFailed)
		return "error"
	}
}
