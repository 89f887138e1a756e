// Package invitations manages the lifecycle of workspace invitations.
//
// # Lifecycle
//
//	none -> pending -> accepted
//	                -> cancelled   (row deleted)
//	                -> superseded  (row replaced by a newer invitation)
//	                -> expired     (derived from expires_at)
//
// An invitation is keyed by (workspace, normalized email). Creating a second
// one for the same pair is a single upsert that replaces the token, so the
// old link stops working and two concurrent creates cannot leave two live
// invitations.
//
// Accepting requires the account's verified email to match the invited
// address. The membership insert and the accepted_at update run in one
// transaction with the invitation row locked, and accepted_at is only set
// when still empty, so a token works exactly once. Accepted rows are kept.
//
// Invitation emails are sent through a Dispatcher off the request path.
// Delivery failures are logged and counted but never undo the invitation.
//
// # Expired Invitations
//
// Expired rows stay in the table and are rejected on use. ReapExpired
// deletes rows whose expiry passed more than a grace period ago; the
// quill-janitor binary runs it on a schedule.
package invitations
