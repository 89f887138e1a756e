package invitations

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/quill/pkg/audit"
	"github.com/platinummonkey/quill/pkg/auth"
	"github.com/platinummonkey/quill/pkg/email"
	"github.com/platinummonkey/quill/pkg/observability"
	"github.com/platinummonkey/quill/pkg/rbac"
	"github.com/platinummonkey/quill/pkg/workspaces"
)

// DefaultSendTimeout bounds one invitation email delivery
const DefaultSendTimeout = 15 * time.Second

// MembershipResolver reports whether a user can already act in a workspace
type MembershipResolver interface {
	ResolveIn(ctx context.Context, userID, workspaceID int64) (*workspaces.Context, error)
}

// ActivityRecorder receives activity entries for invitation changes
type ActivityRecorder interface {
	Append(ctx context.Context, entry audit.Entry)
}

// Dispatcher runs best-effort work off the request path. *async.Group runs
// it in a tracked goroutine; async.Inline runs it before returning.
type Dispatcher interface {
	Go(ctx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error)
}

// Options configures a Manager
type Options struct {
	// BaseURL is the public app URL the accept link is built from
	BaseURL string

	// AppName appears in email subjects and bodies
	AppName string

	// TTL is the invitation lifetime; DefaultTTL when zero
	TTL time.Duration

	// SendTimeout bounds email delivery; DefaultSendTimeout when zero
	SendTimeout time.Duration

	// Metrics may be nil
	Metrics *observability.Metrics

	// Now overrides the clock in tests
	Now func() time.Time
}

// Manager owns the invitation lifecycle
type Manager struct {
	store      Store
	directory  auth.Directory
	members    MembershipResolver
	workspaces workspaces.Store
	sender     email.Sender
	activity   ActivityRecorder
	dispatcher Dispatcher
	opts       Options
}

// NewManager creates a new Manager
func NewManager(
	store Store,
	directory auth.Directory,
	members MembershipResolver,
	workspaceStore workspaces.Store,
	sender email.Sender,
	activity ActivityRecorder,
	dispatcher Dispatcher,
	opts Options,
) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &Manager{
		store:      store,
		directory:  directory,
		members:    members,
		workspaces: workspaceStore,
		sender:     sender,
		activity:   activity,
		dispatcher: dispatcher,
		opts:       opts,
	}
}

// Create issues an invitation, replacing any earlier one for the same
// workspace and email. The email is sent in the background; a delivery
// failure leaves the invitation valid.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (inv *Invitation, err error) {
	ctx, span := observability.StartSpan(ctx, "invitations.Create",
		attribute.Int64("workspace.id", req.WorkspaceID))
	defer func() { observability.EndSpan(span, err) }()

	addr := auth.NormalizeEmail(req.Email)
	if err := ValidateEmail(addr); err != nil {
		return nil, err
	}
	if !req.Role.Valid() || req.Role == rbac.RoleOwner {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, req.Role)
	}

	if err := m.checkNotMember(ctx, req.WorkspaceID, addr); err != nil {
		return nil, err
	}

	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	now := m.opts.Now()
	inv = &Invitation{
		WorkspaceID: req.WorkspaceID,
		Email:       addr,
		Role:        req.Role,
		InvitedBy:   req.InvitedBy,
		Token:       token,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.opts.TTL),
	}
	if err := m.store.Upsert(ctx, inv); err != nil {
		return nil, err
	}
	m.opts.Metrics.RecordInvitation("created")

	m.sendInvitation(ctx, inv, "invitation")

	m.activity.Append(ctx, audit.Entry{
		WorkspaceID:  inv.WorkspaceID,
		UserID:       req.InvitedBy,
		Action:       audit.ActionInvitedMember,
		ResourceType: audit.ResourceTypeInvitation,
		ResourceID:   strconv.FormatInt(inv.ID, 10),
		Details: map[string]interface{}{
			"email": inv.Email,
			"role":  string(inv.Role),
		},
	})

	return inv, nil
}

// checkNotMember fails with ErrAlreadyMember when an account with addr can
// already act in the workspace, clearing any stale invitation for it
func (m *Manager) checkNotMember(ctx context.Context, workspaceID int64, addr string) error {
	user, err := m.directory.FindByEmail(ctx, addr)
	if errors.Is(err, auth.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up invitee: %w", err)
	}

	_, err = m.members.ResolveIn(ctx, user.ID, workspaceID)
	if errors.Is(err, workspaces.ErrNoWorkspaceAccess) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}

	if err := m.store.DeleteForEmail(ctx, workspaceID, addr); err != nil {
		return err
	}
	return ErrAlreadyMember
}

// Accept redeems a token for userID. The account's verified email must match
// the invited address.
func (m *Manager) Accept(ctx context.Context, token string, userID int64) (membership *workspaces.Membership, err error) {
	ctx, span := observability.StartSpan(ctx, "invitations.Accept",
		attribute.Int64("user.id", userID))
	defer func() {
		if err != nil {
			m.opts.Metrics.RecordInvitation("accept_rejected")
		}
		observability.EndSpan(span, err)
	}()

	if token == "" {
		return nil, ErrInvitationInvalidOrExpired
	}

	inv, err := m.store.GetPendingByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	now := m.opts.Now()
	if now.After(inv.ExpiresAt) {
		return nil, ErrInvitationExpired
	}

	user, err := m.directory.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load accepting user: %w", err)
	}
	if !user.EmailVerified || auth.NormalizeEmail(user.Email) != inv.Email {
		return nil, ErrInvitationEmailMismatch
	}

	membership, err = m.store.Accept(ctx, inv.ID, userID, now)
	if err != nil {
		return nil, err
	}
	m.opts.Metrics.RecordInvitation("accepted")

	m.activity.Append(ctx, audit.Entry{
		WorkspaceID:  inv.WorkspaceID,
		UserID:       userID,
		Action:       audit.ActionMemberJoined,
		ResourceType: audit.ResourceTypeMember,
		ResourceID:   strconv.FormatInt(userID, 10),
		Details: map[string]interface{}{
			"email":         inv.Email,
			"role":          string(inv.Role),
			"invitation_id": inv.ID,
		},
	})

	return membership, nil
}

// Cancel deletes a pending invitation in the caller's workspace
func (m *Manager) Cancel(ctx context.Context, workspaceID, invitationID, requestingUserID int64) error {
	inv, err := m.store.GetPending(ctx, workspaceID, invitationID)
	if err != nil {
		return err
	}

	if err := m.store.Delete(ctx, workspaceID, invitationID); err != nil {
		return err
	}
	m.opts.Metrics.RecordInvitation("cancelled")

	m.activity.Append(ctx, audit.Entry{
		WorkspaceID:  workspaceID,
		UserID:       requestingUserID,
		Action:       audit.ActionInvitationCancelled,
		ResourceType: audit.ResourceTypeInvitation,
		ResourceID:   strconv.FormatInt(invitationID, 10),
		Details: map[string]interface{}{
			"email": inv.Email,
			"role":  string(inv.Role),
		},
	})
	return nil
}

// Resend emails a pending invitation again with its original token and
// expiry. A missing invitation is ErrInvitationNotFound and an expired one
// ErrInvitationExpired. Delivery failures are logged, not returned.
func (m *Manager) Resend(ctx context.Context, workspaceID, invitationID, requestingUserID int64) (*Invitation, error) {
	inv, err := m.store.GetPending(ctx, workspaceID, invitationID)
	if err != nil {
		return nil, err
	}
	if !m.opts.Now().Before(inv.ExpiresAt) {
		return nil, ErrInvitationExpired
	}

	m.opts.Metrics.RecordInvitation("resent")
	m.sendInvitation(ctx, inv, "invitation_resend")

	m.activity.Append(ctx, audit.Entry{
		WorkspaceID:  workspaceID,
		UserID:       requestingUserID,
		Action:       audit.ActionInvitationResent,
		ResourceType: audit.ResourceTypeInvitation,
		ResourceID:   strconv.FormatInt(invitationID, 10),
		Details: map[string]interface{}{
			"email": inv.Email,
		},
	})
	return inv, nil
}

// ListPending returns the live invitations of a workspace, newest first
func (m *Manager) ListPending(ctx context.Context, workspaceID int64) ([]*Invitation, error) {
	return m.store.ListPending(ctx, workspaceID, m.opts.Now())
}

// ReapExpired deletes unaccepted invitations that expired more than grace ago
func (m *Manager) ReapExpired(ctx context.Context, grace time.Duration) (int64, error) {
	reaper := &Reaper{store: m.store, metrics: m.opts.Metrics, now: m.opts.Now}
	return reaper.Reap(ctx, grace)
}

// Preview returns the accept page summary of a live invitation
func (m *Manager) Preview(ctx context.Context, token string) (*Preview, error) {
	if token == "" {
		return nil, ErrInvitationInvalidOrExpired
	}
	p, err := m.store.Preview(ctx, token)
	if err != nil {
		return nil, err
	}
	if m.opts.Now().After(p.ExpiresAt) {
		return nil, ErrInvitationExpired
	}
	return p, nil
}

// AcceptURL builds the link sent in invitation emails
func (m *Manager) AcceptURL(token string) string {
	return m.opts.BaseURL + "/accept-invite?token=" + url.QueryEscape(token)
}

// sendInvitation renders and dispatches the email. It detaches from the
// request's cancellation so the send outlives the response.
func (m *Manager) sendInvitation(ctx context.Context, inv *Invitation, kind string) {
	data := email.InvitationData{
		AppName:   m.opts.AppName,
		Role:      string(inv.Role),
		AcceptURL: m.AcceptURL(inv.Token),
		ExpiresAt: inv.ExpiresAt,
	}
	if ws, err := m.workspaces.GetWorkspace(ctx, inv.WorkspaceID); err == nil {
		data.WorkspaceName = ws.Name
	}
	if inviter, err := m.directory.GetUser(ctx, inv.InvitedBy); err == nil {
		data.InviterName = inviter.Name()
	}

	subject, body, err := email.RenderInvitation(data)
	if err != nil {
		m.opts.Metrics.RecordEmailDelivery(kind, err)
		observability.FromContext(ctx).WithError(err).Warn("failed to render invitation email")
		return
	}

	to := inv.Email
	metrics := m.opts.Metrics
	m.dispatcher.Go(context.WithoutCancel(ctx), m.opts.SendTimeout, kind+" email", func(ctx context.Context) error {
		err := m.sender.Send(ctx, to, subject, body)
		metrics.RecordEmailDelivery(kind, err)
		return err
	})
}
