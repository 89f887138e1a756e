//go:build integration

package invitations

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/platinummonkey/quill/pkg/observability"
	"github.com/platinummonkey/quill/pkg/rbac"
	"github.com/platinummonkey/quill/pkg/workspaces"
)

// setupPostgresTestDB starts a PostgreSQL container with the schema applied
func setupPostgresTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("quill_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	require.NoError(t, workspaces.RunMigrations(ctx, db, observability.NewNopLogger()))

	cleanup := func() {
		db.Close()
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := postgresContainer.Terminate(cleanupCtx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func seedUser(t *testing.T, db *sql.DB, email, name string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(
		`INSERT INTO users (email, display_name) VALUES ($1, $2) RETURNING id`,
		email, name,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

func seedWorkspace(t *testing.T, db *sql.DB, name string, ownerID int64) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(
		`INSERT INTO workspaces (name, owner_id) VALUES ($1, $2) RETURNING id`,
		name, ownerID,
	).Scan(&id)
	require.NoError(t, err)
	_, err = db.Exec(
		`INSERT INTO team_members (workspace_id, user_id, role) VALUES ($1, $2, 'owner')`,
		id, ownerID,
	)
	require.NoError(t, err)
	return id
}

func TestInvitationLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, cleanup := setupPostgresTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)
	resolver := workspaces.NewResolver(workspaces.NewPostgresStore(db), nil)

	ownerID := seedUser(t, db, "owner@example.com", "Olive Owner")
	inviteeID := seedUser(t, db, "ed@example.com", "Ed Itor")
	wsID := seedWorkspace(t, db, "Acme Social", ownerID)

	now := time.Now().UTC().Truncate(time.Microsecond)
	inv := &Invitation{
		WorkspaceID: wsID,
		Email:       "ed@example.com",
		Role:        rbac.RoleEditor,
		InvitedBy:   ownerID,
		Token:       "first-token",
		CreatedAt:   now,
		ExpiresAt:   now.Add(DefaultTTL),
	}
	require.NoError(t, store.Upsert(ctx, inv))
	firstID := inv.ID

	// Re-inviting the same address replaces the token on the same row
	inv.Token = "second-token"
	inv.Role = rbac.RoleAdmin
	require.NoError(t, store.Upsert(ctx, inv))
	assert.Equal(t, firstID, inv.ID)

	_, err := store.GetPendingByToken(ctx, "first-token")
	assert.ErrorIs(t, err, ErrInvitationInvalidOrExpired)

	preview, err := store.Preview(ctx, "second-token")
	require.NoError(t, err)
	assert.Equal(t, "Acme Social", preview.WorkspaceName)
	assert.Equal(t, rbac.RoleAdmin, preview.Role)

	pending, err := store.ListPending(ctx, wsID, now)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = resolver.Resolve(ctx, inviteeID)
	assert.ErrorIs(t, err, workspaces.ErrNoWorkspaceAccess)

	membership, err := store.Accept(ctx, inv.ID, inviteeID, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, membership.Role)
	assert.Equal(t, wsID, membership.WorkspaceID)

	_, err = store.Accept(ctx, inv.ID, inviteeID, now.Add(2*time.Minute))
	assert.ErrorIs(t, err, ErrInvitationInvalidOrExpired)

	wsCtx, err := resolver.Resolve(ctx, inviteeID)
	require.NoError(t, err)
	assert.Equal(t, wsID, wsCtx.WorkspaceID)
	assert.Equal(t, rbac.RoleAdmin, wsCtx.Role)
	assert.False(t, wsCtx.IsOwner)

	ownerCtx, err := resolver.Resolve(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleOwner, ownerCtx.Role)
	assert.True(t, ownerCtx.IsOwner)
}

func TestAcceptExpired_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, cleanup := setupPostgresTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db)

	ownerID := seedUser(t, db, "owner@example.com", "Olive Owner")
	inviteeID := seedUser(t, db, "late@example.com", "")
	wsID := seedWorkspace(t, db, "Acme Social", ownerID)

	now := time.Now().UTC()
	inv := &Invitation{
		WorkspaceID: wsID,
		Email:       "late@example.com",
		Role:        rbac.RoleViewer,
		InvitedBy:   ownerID,
		Token:       "stale-token",
		CreatedAt:   now.Add(-8 * 24 * time.Hour),
		ExpiresAt:   now.Add(-24 * time.Hour),
	}
	require.NoError(t, store.Upsert(ctx, inv))

	_, err := store.Accept(ctx, inv.ID, inviteeID, now)
	assert.ErrorIs(t, err, ErrInvitationExpired)

	pending, err := store.ListPending(ctx, wsID, now)
	require.NoError(t, err)
	assert.Empty(t, pending)

	reaped, err := NewReaper(store, nil).Reap(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reaped)
}
