// Package auth provides caller identity for Quill.
//
// # Overview
//
// Requests are authenticated with short-lived HS256 session tokens. The token
// subject is the numeric user ID and the email claim carries the address the
// user signed in with. Verified tokens become an Identity, which the HTTP
// middleware attaches to the request context.
//
//	tm, err := auth.NewTokenManager(secret, "quill", 15*time.Minute)
//	token, err := tm.Issue(user)
//	identity, err := tm.Verify(token)
//
// Handlers read the caller back with RequireIdentity, which answers
// ErrAuthenticationRequired for anonymous requests:
//
//	identity, err := auth.RequireIdentity(r.Context())
//	if err != nil {
//		return err
//	}
//
// # Directory
//
// Directory is the administrative lookup over user accounts. It is used to
// check the email of an invitation acceptor, to refuse invitations to the
// workspace owner, and to resolve display names for the activity feed.
// PostgresDirectory reads the users table.
//
// # Related Packages
//
//   - pkg/middleware: Bearer token authentication
//   - pkg/invitations: Acceptance checks against the directory
//   - pkg/audit: Feed name resolution
package auth
