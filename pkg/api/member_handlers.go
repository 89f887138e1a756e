package api

import (
	"net/http"

	"github.com/platinummonkey/quill/pkg/httputil"
	"github.com/platinummonkey/quill/pkg/rbac"
	"github.com/platinummonkey/quill/pkg/workspaces"
)

// MemberHandlers handles workspace member requests
type MemberHandlers struct {
	members MemberService
}

// ChangeRoleRequest is the body of PUT /api/workspace/members/{user_id}/role
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// ListMembers handles GET /api/workspace/members
func (h *MemberHandlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	_, ws := caller(r)

	members, err := h.members.ListMembers(r.Context(), ws.WorkspaceID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if members == nil {
		members = []*workspaces.Member{}
	}

	httputil.WriteSuccess(w, members)
}

// ChangeRole handles PUT /api/workspace/members/{user_id}/role
func (h *MemberHandlers) ChangeRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "user_id")
	if !ok {
		return
	}

	var req ChangeRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid role")
		return
	}

	identity, ws := caller(r)
	membership, err := h.members.ChangeRole(r.Context(), ws, identity.UserID, userID, role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, membership)
}

// RemoveMember handles DELETE /api/workspace/members/{user_id}
func (h *MemberHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, ok := httputil.ParsePathInt64OrError(w, r, "user_id")
	if !ok {
		return
	}

	identity, ws := caller(r)
	if err := h.members.RemoveMember(r.Context(), ws, identity.UserID, userID); err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}
