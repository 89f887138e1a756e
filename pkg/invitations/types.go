package invitations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/quill/pkg/rbac"
	"github.com/platinummonkey/quill/pkg/workspaces"
)

// DefaultTTL is how long an invitation stays valid after it is created
const DefaultTTL = 7 * 24 * time.Hour

var (
	// ErrInvitationInvalidOrExpired is returned for unknown, accepted or
	// expired tokens
	ErrInvitationInvalidOrExpired = errors.New("invitation is invalid or has expired")

	// ErrInvitationExpired is returned when a pending invitation is past its
	// expiry. It matches ErrInvitationInvalidOrExpired with errors.Is.
	ErrInvitationExpired = fmt.Errorf("invitation expired: %w", ErrInvitationInvalidOrExpired)

	// ErrInvitationEmailMismatch is returned when the accepting account's
	// verified email is not the invited address
	ErrInvitationEmailMismatch = errors.New("invitation was sent to a different email address")

	// ErrAlreadyMember is returned when inviting someone who already belongs
	// to the workspace
	ErrAlreadyMember = errors.New("user is already a member of this workspace")

	// ErrInvitationNotFound is returned when no pending invitation has the ID
	ErrInvitationNotFound = errors.New("invitation not found")

	// ErrInvalidEmail is returned for addresses that fail syntax validation
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidRole is returned when inviting with an unknown role or as owner
	ErrInvalidRole = errors.New("invalid invitation role")
)

// Status is the derived lifecycle state of an invitation
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusExpired  Status = "expired"
)

// Invitation grants one email address the right to join a workspace
type Invitation struct {
	ID          int64      `json:"id"`
	WorkspaceID int64      `json:"workspace_id"`
	Email       string     `json:"email"`
	Role        rbac.Role  `json:"role"`
	InvitedBy   int64      `json:"invited_by"`
	Token       string     `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	AcceptedBy  *int64     `json:"accepted_by,omitempty"`
}

// Status returns the state of the invitation at now
func (i *Invitation) Status(now time.Time) Status {
	switch {
	case i.AcceptedAt != nil:
		return StatusAccepted
	case now.After(i.ExpiresAt):
		return StatusExpired
	default:
		return StatusPending
	}
}

// CreateRequest holds the fields for a new invitation
type CreateRequest struct {
	WorkspaceID int64     `json:"workspace_id"`
	Email       string    `json:"email"`
	Role        rbac.Role `json:"role"`
	InvitedBy   int64     `json:"invited_by"`
}

// Preview is the public summary shown on the accept page
type Preview struct {
	WorkspaceName string    `json:"workspace_name"`
	Email         string    `json:"email"`
	Role          rbac.Role `json:"role"`
	InviterName   string    `json:"inviter_name,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Store is the persistence interface for invitations
type Store interface {
	// Upsert inserts an invitation or replaces the one already held by the
	// same (workspace, email) pair, filling in ID
	Upsert(ctx context.Context, inv *Invitation) error

	// DeleteForEmail removes any invitation for the pair
	DeleteForEmail(ctx context.Context, workspaceID int64, email string) error

	// GetPendingByToken returns the unaccepted invitation holding token or
	// ErrInvitationInvalidOrExpired
	GetPendingByToken(ctx context.Context, token string) (*Invitation, error)

	// GetPending returns an unaccepted invitation in a workspace or
	// ErrInvitationNotFound
	GetPending(ctx context.Context, workspaceID, id int64) (*Invitation, error)

	// Accept activates a membership for userID and marks the invitation
	// accepted in one transaction. A concurrent accept of the same
	// invitation fails with ErrInvitationInvalidOrExpired.
	Accept(ctx context.Context, id, userID int64, now time.Time) (*workspaces.Membership, error)

	// Delete removes an unaccepted invitation or returns ErrInvitationNotFound
	Delete(ctx context.Context, workspaceID, id int64) error

	// ListPending returns unaccepted invitations not yet expired at now,
	// newest first
	ListPending(ctx context.Context, workspaceID int64, now time.Time) ([]*Invitation, error)

	// DeleteExpired removes unaccepted invitations that expired before cutoff
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)

	// Preview returns the accept page summary for a pending token
	Preview(ctx context.Context, token string) (*Preview, error)
}
