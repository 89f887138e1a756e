// Package rbac provides the workspace permission model for Quill.
//
// # Overview
//
// Access is decided from two inputs: the caller's role in the resolved
// workspace and the name of the action being attempted. Both are fixed
// enumerations, and the mapping between them is a compile-time table.
//
// # Roles
//
// Roles are totally ordered by privilege:
//
//	viewer < editor < admin < owner
//
// Role.AtLeast implements minimum-role checks. Unknown roles satisfy nothing.
//
// # Actions and the Permission Matrix
//
//	create_post      owner, admin, editor
//	schedule_post    owner, admin, editor
//	post_now         owner, admin
//	approve_post     owner, admin
//	edit_own_post    owner, admin, editor
//	edit_any_post    owner, admin
//	delete_own_post  owner, admin, editor
//	delete_any_post  owner, admin
//	view_analytics   owner, admin, editor, viewer
//	view_activity    owner, admin, editor, viewer
//	invite_member    owner, admin
//	manage_invitations owner, admin
//	remove_member    owner
//	change_role      owner
//	manage_workspace owner, admin
//	connect_accounts owner, admin
//	manage_billing   owner
//
// An action that is not in the table is denied.
//
// # Own vs. Any
//
// Some actions come in pairs: one for resources the caller created and one
// for any resource in the workspace. Callers pass the resource owner and let
// the package pick the variant:
//
//	allowed := rbac.Authorize(ctx.Role, rbac.ActionEditOwnPost, &post.AuthorID, userID)
//
// If the caller owns the post, edit_own_post is evaluated; otherwise
// edit_any_post is.
//
// # Related Packages
//
//   - pkg/workspaces: Resolves the role a user acts under
//   - pkg/middleware: HTTP guards built on this package
package rbac
