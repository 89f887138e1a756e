package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/quill/pkg/auth"
	"github.com/platinummonkey/quill/pkg/observability"
	"github.com/platinummonkey/quill/pkg/rbac"
	"github.com/platinummonkey/quill/pkg/workspaces"
)

// stubResolver returns a fixed context per workspace ID; 0 is the default
type stubResolver struct {
	contexts map[int64]*workspaces.Context
	err      error
	delay    time.Duration
	calls    int
}

func (s *stubResolver) lookup(ctx context.Context, workspaceID int64) (*workspaces.Context, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	ws, ok := s.contexts[workspaceID]
	if !ok {
		return nil, workspaces.ErrNoWorkspaceAccess
	}
	return ws, nil
}

func (s *stubResolver) Resolve(ctx context.Context, userID int64) (*workspaces.Context, error) {
	return s.lookup(ctx, 0)
}

func (s *stubResolver) ResolveIn(ctx context.Context, userID, workspaceID int64) (*workspaces.Context, error) {
	return s.lookup(ctx, workspaceID)
}

func editorIn(id int64) *workspaces.Context {
	return &workspaces.Context{WorkspaceID: id, WorkspaceName: "Acme", Role: rbac.RoleEditor}
}

// workspaceEcho responds 200 with the attached workspace role
func workspaceEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws := workspaces.FromContext(r.Context())
		if ws == nil {
			w.Write([]byte("none"))
			return
		}
		w.Write([]byte(ws.String()))
	})
}

func authedRequest(userID int64) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/workspace/members", nil)
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UserID: userID}))
}

func TestRequireMinimumRole(t *testing.T) {
	resolver := &stubResolver{contexts: map[int64]*workspaces.Context{0: editorIn(10)}}
	guard := NewAccessGuard(resolver, time.Second, nil)

	tests := []struct {
		name       string
		role       rbac.Role
		req        *http.Request
		wantStatus int
		wantBody   string
	}{
		{
			name:       "unauthenticated",
			role:       rbac.RoleViewer,
			req:        httptest.NewRequest(http.MethodGet, "/", nil),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"success":false,"error":"Authentication required"}`,
		},
		{
			name:       "insufficient role",
			role:       rbac.RoleAdmin,
			req:        authedRequest(1),
			wantStatus: http.StatusForbidden,
			wantBody:   `{"success":false,"error":"Requires admin or higher","currentRole":"editor"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			guard.RequireMinimumRole(tt.role)(workspaceEcho()).ServeHTTP(w, tt.req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}

	t.Run("sufficient role attaches context", func(t *testing.T) {
		for _, role := range []rbac.Role{rbac.RoleViewer, rbac.RoleEditor} {
			w := httptest.NewRecorder()
			guard.RequireMinimumRole(role)(workspaceEcho()).ServeHTTP(w, authedRequest(1))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "workspace 10 as editor", w.Body.String())
		}
	})
}

func TestRequireMinimumRole_NoWorkspace(t *testing.T) {
	guard := NewAccessGuard(&stubResolver{}, time.Second, nil)

	w := httptest.NewRecorder()
	guard.RequireMinimumRole(rbac.RoleViewer)(workspaceEcho()).ServeHTTP(w, authedRequest(1))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"No workspace access"}`, w.Body.String())
}

func TestRequireMinimumRole_ResolverFailure(t *testing.T) {
	t.Run("store error", func(t *testing.T) {
		guard := NewAccessGuard(&stubResolver{err: errors.New("connection refused")}, time.Second, nil)

		w := httptest.NewRecorder()
		guard.RequireMinimumRole(rbac.RoleViewer)(workspaceEcho()).ServeHTTP(w, authedRequest(1))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})

	t.Run("timeout", func(t *testing.T) {
		resolver := &stubResolver{
			contexts: map[int64]*workspaces.Context{0: editorIn(10)},
			delay:    time.Second,
		}
		guard := NewAccessGuard(resolver, 10*time.Millisecond, nil)

		w := httptest.NewRecorder()
		guard.RequireMinimumRole(rbac.RoleViewer)(workspaceEcho()).ServeHTTP(w, authedRequest(1))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestRequireAction(t *testing.T) {
	viewer := &workspaces.Context{WorkspaceID: 10, Role: rbac.RoleViewer}
	resolver := &stubResolver{contexts: map[int64]*workspaces.Context{0: viewer}}
	guard := NewAccessGuard(resolver, time.Second, nil)

	t.Run("denied", func(t *testing.T) {
		w := httptest.NewRecorder()
		guard.RequireAction(rbac.ActionInviteMember)(workspaceEcho()).ServeHTTP(w, authedRequest(1))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"Permission denied: invite_member","currentRole":"viewer"}`, w.Body.String())
	})

	t.Run("allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		guard.RequireAction(rbac.ActionViewAnalytics)(workspaceEcho()).ServeHTTP(w, authedRequest(1))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "workspace 10 as viewer", w.Body.String())
	})

	t.Run("unauthenticated", func(t *testing.T) {
		w := httptest.NewRecorder()
		guard.RequireAction(rbac.ActionViewAnalytics)(workspaceEcho()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireAction_ReusesAttachedContext(t *testing.T) {
	resolver := &stubResolver{contexts: map[int64]*workspaces.Context{0: editorIn(10)}}
	guard := NewAccessGuard(resolver, time.Second, nil)

	handler := guard.RequireMinimumRole(rbac.RoleViewer)(
		guard.RequireAction(rbac.ActionCreatePost)(workspaceEcho()),
	)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, authedRequest(1))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, resolver.calls)
}

func TestAccessGuard_WorkspaceHeader(t *testing.T) {
	admin := &workspaces.Context{WorkspaceID: 20, Role: rbac.RoleAdmin}
	resolver := &stubResolver{contexts: map[int64]*workspaces.Context{0: editorIn(10), 20: admin}}
	guard := NewAccessGuard(resolver, time.Second, nil)
	handler := guard.RequireMinimumRole(rbac.RoleAdmin)(workspaceEcho())

	t.Run("selects workspace", func(t *testing.T) {
		req := authedRequest(1)
		req.Header.Set(WorkspaceHeader, "20")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "workspace 20 as admin", w.Body.String())
	})

	t.Run("workspace without access", func(t *testing.T) {
		req := authedRequest(1)
		req.Header.Set(WorkspaceHeader, "30")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"success":false,"error":"No workspace access"}`, w.Body.String())
	})

	t.Run("invalid header", func(t *testing.T) {
		for _, v := range []string{"abc", "0", "-4"} {
			req := authedRequest(1)
			req.Header.Set(WorkspaceHeader, v)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code, v)
		}
	})
}

func TestAccessGuard_Metrics(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	resolver := &stubResolver{contexts: map[int64]*workspaces.Context{0: editorIn(10)}}
	guard := NewAccessGuard(resolver, time.Second, metrics)

	guard.RequireMinimumRole(rbac.RoleViewer)(workspaceEcho()).ServeHTTP(httptest.NewRecorder(), authedRequest(1))
	guard.RequireMinimumRole(rbac.RoleOwner)(workspaceEcho()).ServeHTTP(httptest.NewRecorder(), authedRequest(1))

	require.Equal(t, 2, testutil.CollectAndCount(metrics.AuthzDecisionsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.AuthzDecisionsTotal.WithLabelValues("min_role", "allow")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.AuthzDecisionsTotal.WithLabelValues("min_role", "deny")))
}

func TestWriteDenial(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		body     string
		decision string
	}{
		{
			name:     "unauthenticated",
			err:      auth.ErrAuthenticationRequired,
			status:   http.StatusUnauthorized,
			body:     `{"success":false,"error":"Authentication required"}`,
			decision: "unauthenticated",
		},
		{
			name:     "no workspace",
			err:      workspaces.ErrNoWorkspaceAccess,
			status:   http.StatusForbidden,
			body:     `{"success":false,"error":"No workspace access"}`,
			decision: "no_access",
		},
		{
			name:     "insufficient role",
			err:      rbac.RequireRole(rbac.RoleEditor, rbac.RoleAdmin),
			status:   http.StatusForbidden,
			body:     `{"success":false,"error":"Requires admin or higher","currentRole":"editor"}`,
			decision: "deny",
		},
		{
			name:     "permission denied",
			err:      rbac.Check(rbac.RoleViewer, rbac.ActionInviteMember, nil, 4),
			status:   http.StatusForbidden,
			body:     `{"success":false,"error":"Permission denied: invite_member","currentRole":"viewer"}`,
			decision: "deny",
		},
		{
			name:     "resolver fault",
			err:      errors.New("connection refused"),
			status:   http.StatusServiceUnavailable,
			decision: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			decision := writeDenial(rec, req, tt.err)

			assert.Equal(t, tt.decision, decision)
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, rec.Body.String())
			}
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}
