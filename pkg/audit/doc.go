// Package audit records the workspace activity log.
//
// # Overview
//
// Every membership and invitation change appends an Entry to the
// activity_log table. Entries are never updated or deleted. Recording is a
// side effect: Recorder.Append logs and counts failures instead of returning
// them, so an unavailable log never aborts the change it describes.
//
//	recorder.Append(ctx, audit.Entry{
//		WorkspaceID:  ws.WorkspaceID,
//		UserID:       actor,
//		Action:       audit.ActionInvitedMember,
//		ResourceType: audit.ResourceTypeInvitation,
//		ResourceID:   strconv.FormatInt(inv.ID, 10),
//		Details:      map[string]interface{}{"email": inv.Email, "role": inv.Role},
//	})
//
// # Feed and Rendering
//
// Recorder.Feed returns the newest entries first, with the actor's display
// name and email looked up in one batch through auth.Directory. Each item
// carries a message rendered from a fixed template table:
//
//	invited_member  "{user} invited {email} as {role}"
//	member_joined   "{user} joined the workspace as {role}"
//
// Actions without a template render as "{user} performed {action}". Detail
// fields missing from an entry render as empty text.
//
// # Export
//
// Export writes a feed as JSON, NDJSON or CSV.
//
// # Related Packages
//
//   - pkg/auth: Actor name lookup
//   - pkg/api: Activity feed endpoints
package audit
