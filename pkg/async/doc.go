// Package async runs best-effort background work.
//
// Side effects such as invitation emails must never fail or block the
// request that triggers them. SafeGo and Group run such work on its own
// goroutine with a timeout and panic recovery, logging any error through
// the request logger carried in the context.
//
//	var tasks async.Group
//	tasks.Go(context.WithoutCancel(r.Context()), 10*time.Second, "invitation email", send)
//	...
//	tasks.Wait(shutdownCtx)
//
// Inline runs the same wrapper synchronously and is used by tests.
//
// # Related Packages
//
//   - pkg/invitations: Dispatches invitation emails
//   - pkg/observability: Logging and panic recovery
package async
