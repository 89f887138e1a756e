package workspaces

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/quill/pkg/contextkeys"
	"github.com/platinummonkey/quill/pkg/rbac"
)

var (
	// ErrNoWorkspaceAccess is returned when a user has no active membership
	// or ownership to operate under
	ErrNoWorkspaceAccess = errors.New("no workspace access")

	// ErrWorkspaceNotFound is returned when a workspace does not exist
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrMemberNotFound is returned when a user has no active membership
	ErrMemberNotFound = errors.New("member not found")

	// ErrOwnerImmutable is returned when a change would alter the owner's
	// membership or grant the owner role
	ErrOwnerImmutable = errors.New("workspace owner cannot be changed")
)

// MemberStatus represents the state of a membership row
type MemberStatus string

const (
	MemberStatusActive  MemberStatus = "active"
	MemberStatusRemoved MemberStatus = "removed"
)

// Workspace is the tenant boundary. The owner never changes.
type Workspace struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership records that a user belongs to a workspace with a role
type Membership struct {
	ID          int64        `json:"id"`
	WorkspaceID int64        `json:"workspace_id"`
	UserID      int64        `json:"user_id"`
	Role        rbac.Role    `json:"role"`
	Status      MemberStatus `json:"status"`
	JoinedAt    time.Time    `json:"joined_at"`
	InvitedBy   *int64       `json:"invited_by,omitempty"`
}

// Member is a membership joined with the user's profile for listings
type Member struct {
	Membership
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	IsOwner     bool   `json:"is_owner"`
}

// Candidate is one workspace a user could operate under
type Candidate struct {
	WorkspaceID   int64
	WorkspaceName string
	Role          rbac.Role
	IsOwner       bool
	JoinedAt      time.Time
}

// Context is the resolved (workspace, role) pair a request acts under
type Context struct {
	WorkspaceID   int64     `json:"workspace_id"`
	WorkspaceName string    `json:"workspace_name"`
	Role          rbac.Role `json:"role"`
	IsOwner       bool      `json:"is_owner"`
}

// String implements fmt.Stringer
func (c *Context) String() string {
	return fmt.Sprintf("workspace %d as %s", c.WorkspaceID, c.Role)
}

// WithContext attaches a resolved workspace context to ctx
func WithContext(ctx context.Context, ws *Context) context.Context {
	return contextkeys.WithWorkspace(ctx, ws)
}

// FromContext returns the resolved workspace context attached to ctx, or nil
func FromContext(ctx context.Context) *Context {
	ws, ok := ctx.Value(contextkeys.WorkspaceKey).(*Context)
	if !ok {
		return nil
	}
	return ws
}

// Store is the persistence interface for workspaces and memberships
type Store interface {
	// ListCandidates returns every workspace the user may act in: active
	// memberships plus owned workspaces without a membership row
	ListCandidates(ctx context.Context, userID int64) ([]Candidate, error)

	// GetWorkspace retrieves a workspace by ID
	GetWorkspace(ctx context.Context, id int64) (*Workspace, error)

	// GetActiveMembership returns the user's active membership or ErrMemberNotFound
	GetActiveMembership(ctx context.Context, workspaceID, userID int64) (*Membership, error)

	// ListMembers returns the active members joined with user profiles
	ListMembers(ctx context.Context, workspaceID int64) ([]*Member, error)

	// UpdateMemberRole changes the role of an active membership
	UpdateMemberRole(ctx context.Context, workspaceID, userID int64, role rbac.Role) error

	// DeactivateMember marks an active membership as removed
	DeactivateMember(ctx context.Context, workspaceID, userID int64) error
}
