package rbac

import "sort"

// permissionMatrix maps every guarded action to the roles allowed to perform it.
// Actions missing from the matrix are denied.
var permissionMatrix = map[Action][]Role{
	ActionCreatePost:        {RoleOwner, RoleAdmin, RoleEditor},
	ActionSchedulePost:      {RoleOwner, RoleAdmin, RoleEditor},
	ActionPostNow:           {RoleOwner, RoleAdmin},
	ActionApprovePost:       {RoleOwner, RoleAdmin},
	ActionEditOwnPost:       {RoleOwner, RoleAdmin, RoleEditor},
	ActionEditAnyPost:       {RoleOwner, RoleAdmin},
	ActionDeleteOwnPost:     {RoleOwner, RoleAdmin, RoleEditor},
	ActionDeleteAnyPost:     {RoleOwner, RoleAdmin},
	ActionViewAnalytics:     {RoleOwner, RoleAdmin, RoleEditor, RoleViewer},
	ActionViewActivity:      {RoleOwner, RoleAdmin, RoleEditor, RoleViewer},
	ActionInviteMember:      {RoleOwner, RoleAdmin},
	ActionManageInvitations: {RoleOwner, RoleAdmin},
	ActionRemoveMember:      {RoleOwner},
	ActionChangeRole:        {RoleOwner},
	ActionManageWorkspace:   {RoleOwner, RoleAdmin},
	ActionConnectAccounts:   {RoleOwner, RoleAdmin},
	ActionManageBilling:     {RoleOwner},
}

// anyVariant pairs each "own resource" action with its "any resource" counterpart
var anyVariant = map[Action]Action{
	ActionEditOwnPost:   ActionEditAnyPost,
	ActionDeleteOwnPost: ActionDeleteAnyPost,
}

// Allowed reports whether role is in the matrix entry for action
func Allowed(role Role, action Action) bool {
	for _, r := range permissionMatrix[action] {
		if r == role {
			return true
		}
	}
	return false
}

// ResolveAction returns the action that must actually be evaluated.
// An "own" action on a resource owned by someone else becomes its "any" variant.
// Without a resource owner the action is returned unchanged.
func ResolveAction(action Action, resourceOwnerID *int64, actingUserID int64) Action {
	anyAction, paired := anyVariant[action]
	if !paired || resourceOwnerID == nil {
		return action
	}
	if *resourceOwnerID == actingUserID {
		return action
	}
	return anyAction
}

// Authorize evaluates an action for a role, applying own-vs-any resolution
// when a resource owner is supplied.
func Authorize(role Role, action Action, resourceOwnerID *int64, actingUserID int64) bool {
	return Allowed(role, ResolveAction(action, resourceOwnerID, actingUserID))
}

// Check is Authorize returning a typed error on denial
func Check(role Role, action Action, resourceOwnerID *int64, actingUserID int64) error {
	effective := ResolveAction(action, resourceOwnerID, actingUserID)
	if !Allowed(role, effective) {
		return &PermissionDeniedError{Action: effective, Role: role}
	}
	return nil
}

// RequireRole returns an InsufficientRoleError when current is below min
func RequireRole(current, min Role) error {
	if !current.AtLeast(min) {
		return &InsufficientRoleError{Required: min, Current: current}
	}
	return nil
}

// PermissionsFor lists every action the role may perform, sorted by name
func PermissionsFor(role Role) []Action {
	var actions []Action
	for _, action := range Actions() {
		if Allowed(role, action) {
			actions = append(actions, action)
		}
	}
	return actions
}

// Actions returns every action in the matrix, sorted by name
func Actions() []Action {
	actions := make([]Action, 0, len(permissionMatrix))
	for action := range permissionMatrix {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// AllowedRoles returns a copy of the roles permitted to perform action
func AllowedRoles(action Action) []Role {
	roles := permissionMatrix[action]
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}
