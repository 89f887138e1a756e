package api

import (
	"fmt"
	"net/http"

	"github.com/platinummonkey/quill/pkg/auth"
	"github.com/platinummonkey/quill/pkg/httputil"
	"github.com/platinummonkey/quill/pkg/rbac"
	"github.com/platinummonkey/quill/pkg/workspaces"
)

// WorkspaceHandlers serves the caller's resolved workspace context
type WorkspaceHandlers struct{}

// ContextResponse is the resolved context with the role's capabilities
type ContextResponse struct {
	*workspaces.Context
	Permissions []rbac.Action `json:"permissions"`
}

// AuthorizeRequest asks whether the caller may perform an action
type AuthorizeRequest struct {
	Action          rbac.Action `json:"action"`
	ResourceOwnerID *int64      `json:"resource_owner_id,omitempty"`
}

// AuthorizeResponse is the decision for an AuthorizeRequest. Action is the
// action actually evaluated after own/any resolution and AllowedRoles the
// roles that may perform it.
type AuthorizeResponse struct {
	Allowed      bool        `json:"allowed"`
	Action       rbac.Action `json:"action"`
	Role         rbac.Role   `json:"role"`
	AllowedRoles []rbac.Role `json:"allowed_roles"`
}

// caller returns the identity and workspace attached by the guards
func caller(r *http.Request) (*auth.Identity, *workspaces.Context) {
	return auth.IdentityFromContext(r.Context()), workspaces.FromContext(r.Context())
}

// GetContext handles GET /api/workspace/context
func (h *WorkspaceHandlers) GetContext(w http.ResponseWriter, r *http.Request) {
	_, ws := caller(r)
	httputil.WriteSuccess(w, ContextResponse{
		Context:     ws,
		Permissions: rbac.PermissionsFor(ws.Role),
	})
}

// Authorize handles POST /api/workspace/authorize
func (h *WorkspaceHandlers) Authorize(w http.ResponseWriter, r *http.Request) {
	var req AuthorizeRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Action == "" {
		httputil.WriteBadRequest(w, "action is required")
		return
	}
	action, err := rbac.ParseAction(string(req.Action))
	if err != nil {
		httputil.WriteBadRequest(w, fmt.Sprintf("Unknown action: %s", req.Action))
		return
	}

	identity, ws := caller(r)
	resolved := rbac.ResolveAction(action, req.ResourceOwnerID, identity.UserID)
	httputil.WriteSuccess(w, AuthorizeResponse{
		Allowed:      rbac.Allowed(ws.Role, resolved),
		Action:       resolved,
		Role:         ws.Role,
		AllowedRoles: rbac.AllowedRoles(resolved),
	})
}
