package rbac

import (
	"fmt"
	"strings"
)

// Role represents a workspace-level role
type Role string

const (
	RoleOwner  Role = "owner"  // Created the workspace, full control
	RoleAdmin  Role = "admin"  // Manages members and publishing
	RoleEditor Role = "editor" // Drafts and schedules posts
	RoleViewer Role = "viewer" // Read-only access
)

// roleRank orders roles by privilege. Unknown roles rank zero.
var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank returns the privilege rank of the role (0 for unknown roles)
func (r Role) Rank() int {
	return roleRank[r]
}

// AtLeast reports whether r is equal to or more privileged than min.
// An unknown role never satisfies any minimum.
func (r Role) AtLeast(min Role) bool {
	if !r.Valid() || !min.Valid() {
		return false
	}
	return r.Rank() >= min.Rank()
}

func (r Role) String() string {
	return string(r)
}

// ParseRole parses a role name case-insensitively
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.Valid() {
		return "", fmt.Errorf("invalid role: %q (want one of %v)", s, Roles())
	}
	return role, nil
}

// Roles returns all roles from least to most privileged
func Roles() []Role {
	return []Role{RoleViewer, RoleEditor, RoleAdmin, RoleOwner}
}

// Action is a named operation guarded by the permission matrix
type Action string

const (
	ActionCreatePost        Action = "create_post"
	ActionSchedulePost      Action = "schedule_post"
	ActionPostNow           Action = "post_now"
	ActionApprovePost       Action = "approve_post"
	ActionEditOwnPost       Action = "edit_own_post"
	ActionEditAnyPost       Action = "edit_any_post"
	ActionDeleteOwnPost     Action = "delete_own_post"
	ActionDeleteAnyPost     Action = "delete_any_post"
	ActionViewAnalytics     Action = "view_analytics"
	ActionViewActivity      Action = "view_activity"
	ActionInviteMember      Action = "invite_member"
	ActionManageInvitations Action = "manage_invitations"
	ActionRemoveMember      Action = "remove_member"
	ActionChangeRole        Action = "change_role"
	ActionManageWorkspace   Action = "manage_workspace"
	ActionConnectAccounts   Action = "connect_accounts"
	ActionManageBilling     Action = "manage_billing"
)

func (a Action) String() string {
	return string(a)
}

// ParseAction parses an action name. Names absent from the matrix are rejected.
func ParseAction(s string) (Action, error) {
	action := Action(strings.TrimSpace(s))
	if _, ok := permissionMatrix[action]; !ok {
		return "", fmt.Errorf("unknown action: %q", s)
	}
	return action, nil
}

// InsufficientRoleError is returned when a role is below the required minimum
type InsufficientRoleError struct {
	Required Role
	Current  Role
}

func (e *InsufficientRoleError) Error() string {
	return fmt.Sprintf("requires %s or higher", e.Required)
}

// PermissionDeniedError is returned when the matrix denies an action
type PermissionDeniedError struct {
	Action Action
	Role   Role
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Action)
}
