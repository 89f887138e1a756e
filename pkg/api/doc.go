// Package api provides the HTTP API for workspace membership, invitations
// and the activity log.
//
// # Overview
//
// Server wires gorilla/mux routes to the member service, the invitation
// manager and the activity recorder. Every /api route passes through the
// bearer-token Authenticator; workspace routes are additionally wrapped by
// the AccessGuard with either a minimum role or a named action:
//
//	GET    /api/workspace/context                  viewer or higher
//	POST   /api/workspace/authorize                viewer or higher
//	GET    /api/workspace/members                  viewer or higher
//	PUT    /api/workspace/members/{user_id}/role   change_role
//	DELETE /api/workspace/members/{user_id}        remove_member
//	POST   /api/workspace/invitations              invite_member
//	GET    /api/workspace/invitations              manage_invitations
//	DELETE /api/workspace/invitations/{id}         remove_member
//	POST   /api/workspace/invitations/{id}/resend  invite_member
//	GET    /api/workspace/activity                 view_activity
//	GET    /api/workspace/activity/export          view_activity
//	GET    /api/invitations/preview?token=         public, rate limited
//	POST   /api/invitations/accept                 authenticated, rate limited
//
// # Responses
//
// Successful responses are {"success":true,"data":...}; errors are
// {"success":false,"error":"..."}. Domain errors map to status codes in
// writeError; anything unmapped is logged and reported as a bare 500.
//
// # Usage
//
//	server := api.NewServer(api.Dependencies{
//		Tokens:      tokenManager,
//		Guard:       middleware.NewAccessGuard(resolver, cfg.Access.ResolveTimeout, metrics),
//		Members:     memberService,
//		Invitations: invitationManager,
//		Activity:    recorder,
//	})
//	http.ListenAndServe(":8080", server)
//
// # Related Packages
//
//   - pkg/middleware: Authentication, access guard, rate limiting
//   - pkg/httputil: Response helpers and common middleware
package api
