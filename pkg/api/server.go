package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/quill/pkg/audit"
	"github.com/platinummonkey/quill/pkg/httputil"
	"github.com/platinummonkey/quill/pkg/invitations"
	"github.com/platinummonkey/quill/pkg/middleware"
	"github.com/platinummonkey/quill/pkg/observability"
	"github.com/platinummonkey/quill/pkg/rbac"
	"github.com/platinummonkey/quill/pkg/workspaces"
)

// MemberService manages the members of a workspace
type MemberService interface {
	ListMembers(ctx context.Context, workspaceID int64) ([]*workspaces.Member, error)
	RemoveMember(ctx context.Context, ws *workspaces.Context, actorID, userID int64) error
	ChangeRole(ctx context.Context, ws *workspaces.Context, actorID, userID int64, role rbac.Role) (*workspaces.Membership, error)
}

// InvitationService manages the invitation lifecycle
type InvitationService interface {
	Create(ctx context.Context, req invitations.CreateRequest) (*invitations.Invitation, error)
	Accept(ctx context.Context, token string, userID int64) (*workspaces.Membership, error)
	Cancel(ctx context.Context, workspaceID, invitationID, requestingUserID int64) error
	Resend(ctx context.Context, workspaceID, invitationID, requestingUserID int64) (*invitations.Invitation, error)
	ListPending(ctx context.Context, workspaceID int64) ([]*invitations.Invitation, error)
	Preview(ctx context.Context, token string) (*invitations.Preview, error)
}

// ActivityFeed reads the workspace activity log
type ActivityFeed interface {
	Feed(ctx context.Context, workspaceID int64, limit int) ([]*audit.FeedItem, error)
}

// Dependencies are the collaborators the API server routes to
type Dependencies struct {
	Tokens      middleware.TokenVerifier
	Guard       *middleware.AccessGuard
	Members     MemberService
	Invitations InvitationService
	Activity    ActivityFeed

	// InviteLimiter guards the public invitation endpoints. An in-memory
	// limiter is used when nil.
	InviteLimiter middleware.Limiter

	// TrustedProxies may report client addresses for rate limiting; nil
	// keys anonymous callers by their direct peer
	TrustedProxies *middleware.ProxyTrust

	// Metrics and Logger may be nil
	Metrics *observability.Metrics
	Logger  *observability.Logger

	AllowedOrigins []string
	MaxBodyBytes   int64
}

// Server represents our API server
type Server struct {
	router  *mux.Router
	deps    Dependencies
	handler http.Handler
}

// NewServer creates a new API server
func NewServer(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = observability.NewNopLogger()
	}
	if deps.InviteLimiter == nil {
		deps.InviteLimiter = middleware.NewMemoryLimiter(nil)
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = 1 << 20
	}

	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
	}
	s.setupRoutes()

	chain := httputil.Chain(
		httputil.RequestIDMiddleware,
		s.loggerMiddleware,
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
		httputil.CORSMiddleware(deps.AllowedOrigins),
		httputil.MaxBytesMiddleware(deps.MaxBodyBytes),
		httputil.ContentTypeMiddleware,
	)
	s.handler = otelhttp.NewHandler(chain(s.router), "quill-api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	if s.deps.Metrics != nil {
		s.router.Use(mux.MiddlewareFunc(observability.HTTPMetricsMiddleware(s.deps.Metrics)))
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(middleware.NewAuthenticator(s.deps.Tokens).Handler)

	guard := s.deps.Guard
	workspace := &WorkspaceHandlers{}
	members := &MemberHandlers{members: s.deps.Members}
	invites := &InvitationHandlers{invitations: s.deps.Invitations}
	activity := &ActivityHandlers{feed: s.deps.Activity}

	minViewer := guard.RequireMinimumRole(rbac.RoleViewer)
	action := guard.RequireAction

	// Workspace context
	api.Handle("/workspace/context", minViewer(http.HandlerFunc(workspace.GetContext))).Methods(http.MethodGet)
	api.Handle("/workspace/authorize", minViewer(http.HandlerFunc(workspace.Authorize))).Methods(http.MethodPost)

	// Members
	api.Handle("/workspace/members", minViewer(http.HandlerFunc(members.ListMembers))).Methods(http.MethodGet)
	api.Handle("/workspace/members/{user_id}/role", action(rbac.ActionChangeRole)(http.HandlerFunc(members.ChangeRole))).Methods(http.MethodPut)
	api.Handle("/workspace/members/{user_id}", action(rbac.ActionRemoveMember)(http.HandlerFunc(members.RemoveMember))).Methods(http.MethodDelete)

	// Invitations
	api.Handle("/workspace/invitations", action(rbac.ActionInviteMember)(http.HandlerFunc(invites.CreateInvitation))).Methods(http.MethodPost)
	api.Handle("/workspace/invitations", action(rbac.ActionManageInvitations)(http.HandlerFunc(invites.ListInvitations))).Methods(http.MethodGet)
	api.Handle("/workspace/invitations/{id}", action(rbac.ActionRemoveMember)(http.HandlerFunc(invites.CancelInvitation))).Methods(http.MethodDelete)
	api.Handle("/workspace/invitations/{id}/resend", action(rbac.ActionInviteMember)(http.HandlerFunc(invites.ResendInvitation))).Methods(http.MethodPost)

	limited := middleware.RateLimit(s.deps.InviteLimiter, "invitations", s.deps.TrustedProxies, s.deps.Metrics)
	api.Handle("/invitations/preview", limited(http.HandlerFunc(invites.PreviewInvitation))).Methods(http.MethodGet)
	api.Handle("/invitations/accept", middleware.RequireAuthentication(limited(http.HandlerFunc(invites.AcceptInvitation)))).Methods(http.MethodPost)

	// Activity
	api.Handle("/workspace/activity", action(rbac.ActionViewActivity)(http.HandlerFunc(activity.ListActivity))).Methods(http.MethodGet)
	api.Handle("/workspace/activity/export", action(rbac.ActionViewActivity)(http.HandlerFunc(activity.ExportActivity))).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "Not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
}

// loggerMiddleware attaches the server logger to the request context
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.WithLogger(r.Context(), s.deps.Logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
