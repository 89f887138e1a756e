package workspaces

import (
	"context"
	"fmt"
	"strconv"

	"github.com/platinummonkey/quill/pkg/audit"
	"github.com/platinummonkey/quill/pkg/auth"
	"github.com/platinummonkey/quill/pkg/rbac"
)

// ActivityRecorder receives activity entries for membership changes
type ActivityRecorder interface {
	Append(ctx context.Context, entry audit.Entry)
}

// MemberService manages the members of a workspace
type MemberService struct {
	store     Store
	directory auth.Directory
	activity  ActivityRecorder
}

// NewMemberService creates a new MemberService
func NewMemberService(store Store, directory auth.Directory, activity ActivityRecorder) *MemberService {
	return &MemberService{
		store:     store,
		directory: directory,
		activity:  activity,
	}
}

// ListMembers returns the active members of a workspace
func (s *MemberService) ListMembers(ctx context.Context, workspaceID int64) ([]*Member, error) {
	return s.store.ListMembers(ctx, workspaceID)
}

// RemoveMember deactivates a member. The owner cannot be removed.
func (s *MemberService) RemoveMember(ctx context.Context, ws *Context, actorID, userID int64) error {
	if err := s.rejectOwner(ctx, ws.WorkspaceID, userID); err != nil {
		return err
	}

	membership, err := s.store.GetActiveMembership(ctx, ws.WorkspaceID, userID)
	if err != nil {
		return err
	}

	if err := s.store.DeactivateMember(ctx, ws.WorkspaceID, userID); err != nil {
		return err
	}

	s.activity.Append(ctx, audit.Entry{
		WorkspaceID:  ws.WorkspaceID,
		UserID:       actorID,
		Action:       audit.ActionMemberRemoved,
		ResourceType: audit.ResourceTypeMember,
		ResourceID:   strconv.FormatInt(userID, 10),
		Details: map[string]interface{}{
			"email": s.emailOf(ctx, userID),
			"role":  string(membership.Role),
		},
	})
	return nil
}

// ChangeRole assigns a new role to a member. The owner role can be neither
// granted nor taken away.
func (s *MemberService) ChangeRole(ctx context.Context, ws *Context, actorID, userID int64, role rbac.Role) (*Membership, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role: %q", role)
	}
	if role == rbac.RoleOwner {
		return nil, ErrOwnerImmutable
	}
	if err := s.rejectOwner(ctx, ws.WorkspaceID, userID); err != nil {
		return nil, err
	}

	membership, err := s.store.GetActiveMembership(ctx, ws.WorkspaceID, userID)
	if err != nil {
		return nil, err
	}
	if membership.Role == role {
		return membership, nil
	}

	if err := s.store.UpdateMemberRole(ctx, ws.WorkspaceID, userID, role); err != nil {
		return nil, err
	}

	oldRole := membership.Role
	membership.Role = role

	s.activity.Append(ctx, audit.Entry{
		WorkspaceID:  ws.WorkspaceID,
		UserID:       actorID,
		Action:       audit.ActionRoleChanged,
		ResourceType: audit.ResourceTypeMember,
		ResourceID:   strconv.FormatInt(userID, 10),
		Details: map[string]interface{}{
			"email":    s.emailOf(ctx, userID),
			"old_role": string(oldRole),
			"new_role": string(role),
		},
	})
	return membership, nil
}

func (s *MemberService) rejectOwner(ctx context.Context, workspaceID, userID int64) error {
	workspace, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	if workspace.OwnerID == userID {
		return ErrOwnerImmutable
	}
	return nil
}

// emailOf looks up an email for activity details; a miss leaves it blank
func (s *MemberService) emailOf(ctx context.Context, userID int64) string {
	user, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		return ""
	}
	return user.Email
}
