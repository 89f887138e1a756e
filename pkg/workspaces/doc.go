// Package workspaces resolves which workspace a user acts in and manages
// workspace membership.
//
// # Resolution
//
// A user may act in any workspace where they hold an active membership or
// which they own. Resolver.Resolve picks a default when there are several:
//
//  1. Workspaces the user was invited into before workspaces they own
//  2. Most recently joined first
//  3. Highest workspace ID first
//
// The order is total, so the same inputs always produce the same workspace.
// The owner always resolves with the owner role whatever the membership row
// says. Resolver.ResolveIn answers the same question for one workspace named
// by the caller.
//
// # Membership
//
// MemberService lists, removes and re-roles members. The owner can be
// neither removed nor demoted, and the owner role cannot be granted.
// Removal marks the row removed instead of deleting it, so accepting a new
// invitation later reactivates it.
//
// # Schema
//
// RunMigrations creates the users, workspaces, team_members,
// team_invitations and activity_log tables.
package workspaces
