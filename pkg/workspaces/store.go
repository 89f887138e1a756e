package workspaces

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/quill/pkg/rbac"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ListCandidates returns the workspaces a user may operate under. The
// owner of a workspace always appears with the owner role, with or
// without a membership row.
func (s *PostgresStore) ListCandidates(ctx context.Context, userID int64) ([]Candidate, error) {
	query := `
		SELECT w.id, w.name,
		       CASE WHEN w.owner_id = $1 THEN 'owner' ELSE tm.role END,
		       w.owner_id = $1,
		       tm.joined_at
		FROM team_members tm
		JOIN workspaces w ON w.id = tm.workspace_id
		WHERE tm.user_id = $1 AND tm.status = 'active'
		UNION ALL
		SELECT w.id, w.name, 'owner', TRUE, w.created_at
		FROM workspaces w
		WHERE w.owner_id = $1
		  AND NOT EXISTS (
		      SELECT 1 FROM team_members tm
		      WHERE tm.workspace_id = w.id AND tm.user_id = $1 AND tm.status = 'active'
		  )
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace candidates: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.WorkspaceID, &c.WorkspaceName, &c.Role, &c.IsOwner, &c.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workspace candidates: %w", err)
	}

	return candidates, nil
}

// GetWorkspace retrieves a workspace by ID
func (s *PostgresStore) GetWorkspace(ctx context.Context, id int64) (*Workspace, error) {
	query := `SELECT id, name, owner_id, created_at FROM workspaces WHERE id = $1`
	ws := &Workspace{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(&ws.ID, &ws.Name, &ws.OwnerID, &ws.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return ws, nil
}

// GetActiveMembership retrieves a user's active membership row
func (s *PostgresStore) GetActiveMembership(ctx context.Context, workspaceID, userID int64) (*Membership, error) {
	query := `
		SELECT id, workspace_id, user_id, role, status, joined_at, invited_by
		FROM team_members
		WHERE workspace_id = $1 AND user_id = $2 AND status = 'active'
	`
	m := &Membership{}
	var invitedBy sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, workspaceID, userID).Scan(
		&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &m.Status, &m.JoinedAt, &invitedBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if invitedBy.Valid {
		m.InvitedBy = &invitedBy.Int64
	}
	return m, nil
}

// ListMembers retrieves the active members of a workspace, owner first
func (s *PostgresStore) ListMembers(ctx context.Context, workspaceID int64) ([]*Member, error) {
	query := `
		SELECT tm.id, tm.workspace_id, tm.user_id,
		       CASE WHEN w.owner_id = tm.user_id THEN 'owner' ELSE tm.role END,
		       tm.status, tm.joined_at, tm.invited_by,
		       u.email, u.display_name, w.owner_id = tm.user_id
		FROM team_members tm
		JOIN workspaces w ON w.id = tm.workspace_id
		JOIN users u ON u.id = tm.user_id
		WHERE tm.workspace_id = $1 AND tm.status = 'active'
		UNION ALL
		SELECT 0, w.id, w.owner_id, 'owner', 'active', w.created_at, NULL,
		       u.email, u.display_name, TRUE
		FROM workspaces w
		JOIN users u ON u.id = w.owner_id
		WHERE w.id = $1
		  AND NOT EXISTS (
		      SELECT 1 FROM team_members tm
		      WHERE tm.workspace_id = w.id AND tm.user_id = w.owner_id AND tm.status = 'active'
		  )
		ORDER BY 10 DESC, 6 ASC
	`
	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		member := &Member{}
		var invitedBy sql.NullInt64
		var displayName sql.NullString
		if err := rows.Scan(
			&member.ID, &member.WorkspaceID, &member.UserID, &member.Role,
			&member.Status, &member.JoinedAt, &invitedBy,
			&member.Email, &displayName, &member.IsOwner,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if invitedBy.Valid {
			member.InvitedBy = &invitedBy.Int64
		}
		if displayName.Valid {
			member.DisplayName = displayName.String
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// UpdateMemberRole updates an active member's role
func (s *PostgresStore) UpdateMemberRole(ctx context.Context, workspaceID, userID int64, role rbac.Role) error {
	query := `
		UPDATE team_members SET role = $1
		WHERE workspace_id = $2 AND user_id = $3 AND status = 'active'
	`
	result, err := s.db.ExecContext(ctx, query, role, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}
	return requireOneRow(result)
}

// DeactivateMember marks an active membership as removed. The row is kept
// so a later invitation can reactivate it.
func (s *PostgresStore) DeactivateMember(ctx context.Context, workspaceID, userID int64) error {
	query := `
		UPDATE team_members SET status = 'removed'
		WHERE workspace_id = $1 AND user_id = $2 AND status = 'active'
	`
	result, err := s.db.ExecContext(ctx, query, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return requireOneRow(result)
}

func requireOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}
