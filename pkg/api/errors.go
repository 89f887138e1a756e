package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/quill/pkg/auth"
	"github.com/platinummonkey/quill/pkg/httputil"
	"github.com/platinummonkey/quill/pkg/invitations"
	"github.com/platinummonkey/quill/pkg/observability"
	"github.com/platinummonkey/quill/pkg/workspaces"
)

// errorMapping pairs a domain error with its HTTP response. Order matters:
// ErrInvitationExpired also matches ErrInvitationInvalidOrExpired.
var errorMappings = []struct {
	err     error
	status  int
	message string
}{
	{auth.ErrAuthenticationRequired, http.StatusUnauthorized, "Authentication required"},
	{workspaces.ErrNoWorkspaceAccess, http.StatusForbidden, "No workspace access"},
	{workspaces.ErrOwnerImmutable, http.StatusForbidden, "The workspace owner cannot be changed or removed"},
	{workspaces.ErrMemberNotFound, http.StatusNotFound, "Member not found"},
	{workspaces.ErrWorkspaceNotFound, http.StatusNotFound, "Workspace not found"},
	{auth.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{invitations.ErrInvitationExpired, http.StatusGone, "Invitation has expired"},
	{invitations.ErrInvitationInvalidOrExpired, http.StatusBadRequest, "Invalid or expired invitation"},
	{invitations.ErrInvitationEmailMismatch, http.StatusForbidden, "This invitation was sent to a different email address"},
	{invitations.ErrAlreadyMember, http.StatusConflict, "User is already a member of this workspace"},
	{invitations.ErrInvitationNotFound, http.StatusNotFound, "Invitation not found"},
	{invitations.ErrInvalidEmail, http.StatusBadRequest, "Invalid email address"},
	{invitations.ErrInvalidRole, http.StatusBadRequest, "Invalid role"},
}

// writeError maps a domain error to a JSON error response. Unknown errors
// are logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			httputil.WriteErrorMessage(w, m.status, m.message)
			return
		}
	}

	observability.FromContext(r.Context()).
		WithError(err).
		WithFields(map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		}).
		Error("request failed")
	httputil.WriteInternalError(w)
}
