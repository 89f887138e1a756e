package api

import (
	"net/http"
	"strings"

	"github.com/platinummonkey/quill/pkg/auth"
	"github.com/platinummonkey/quill/pkg/httputil"
	"github.com/platinummonkey/quill/pkg/invitations"
	"github.com/platinummonkey/quill/pkg/rbac"
)

// InvitationHandlers handles invitation requests
type InvitationHandlers struct {
	invitations InvitationService
}

// CreateInvitationRequest is the body of POST /api/workspace/invitations
type CreateInvitationRequest struct {
	Email string    `json:"email"`
	Role  rbac.Role `json:"role"`
}

// AcceptInvitationRequest is the body of POST /api/invitations/accept
type AcceptInvitationRequest struct {
	Token string `json:"token"`
}

// CreateInvitation handles POST /api/workspace/invitations
func (h *InvitationHandlers) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req CreateInvitationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		httputil.WriteBadRequest(w, "email is required")
		return
	}

	identity, ws := caller(r)
	inv, err := h.invitations.Create(r.Context(), invitations.CreateRequest{
		WorkspaceID: ws.WorkspaceID,
		Email:       req.Email,
		Role:        req.Role,
		InvitedBy:   identity.UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteCreated(w, inv)
}

// ListInvitations handles GET /api/workspace/invitations
func (h *InvitationHandlers) ListInvitations(w http.ResponseWriter, r *http.Request) {
	_, ws := caller(r)

	pending, err := h.invitations.ListPending(r.Context(), ws.WorkspaceID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if pending == nil {
		pending = []*invitations.Invitation{}
	}

	httputil.WriteSuccess(w, pending)
}

// CancelInvitation handles DELETE /api/workspace/invitations/{id}
func (h *InvitationHandlers) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	identity, ws := caller(r)
	if err := h.invitations.Cancel(r.Context(), ws.WorkspaceID, invitationID, identity.UserID); err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteNoContent(w)
}

// ResendInvitation handles POST /api/workspace/invitations/{id}/resend
func (h *InvitationHandlers) ResendInvitation(w http.ResponseWriter, r *http.Request) {
	invitationID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	identity, ws := caller(r)
	inv, err := h.invitations.Resend(r.Context(), ws.WorkspaceID, invitationID, identity.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, inv)
}

// PreviewInvitation handles GET /api/invitations/preview?token=
func (h *InvitationHandlers) PreviewInvitation(w http.ResponseWriter, r *http.Request) {
	token := httputil.ParseQueryString(r, "token", "")
	if token == "" {
		httputil.WriteBadRequest(w, "token is required")
		return
	}

	preview, err := h.invitations.Preview(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, preview)
}

// AcceptInvitation handles POST /api/invitations/accept
func (h *InvitationHandlers) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req AcceptInvitationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Token == "" {
		httputil.WriteBadRequest(w, "token is required")
		return
	}

	identity := auth.IdentityFromContext(r.Context())
	membership, err := h.invitations.Accept(r.Context(), req.Token, identity.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, membership)
}
