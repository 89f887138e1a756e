package invitations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/quill/pkg/workspaces"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const invitationColumns = `id, workspace_id, email, role, invited_by, token, created_at, expires_at, accepted_at, accepted_by`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvitation(row rowScanner) (*Invitation, error) {
	inv := &Invitation{}
	var acceptedAt sql.NullTime
	var acceptedBy sql.NullInt64
	if err := row.Scan(
		&inv.ID, &inv.WorkspaceID, &inv.Email, &inv.Role, &inv.InvitedBy,
		&inv.Token, &inv.CreatedAt, &inv.ExpiresAt, &acceptedAt, &acceptedBy,
	); err != nil {
		return nil, err
	}
	if acceptedAt.Valid {
		inv.AcceptedAt = &acceptedAt.Time
	}
	if acceptedBy.Valid {
		inv.AcceptedBy = &acceptedBy.Int64
	}
	return inv, nil
}

// Upsert creates an invitation. An existing row for the same workspace and
// email is replaced in the same statement, so its old token stops working.
func (s *PostgresStore) Upsert(ctx context.Context, inv *Invitation) error {
	query := `
		INSERT INTO team_invitations (workspace_id, email, role, invited_by, token, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (workspace_id, email) DO UPDATE
		SET role = EXCLUDED.role,
		    invited_by = EXCLUDED.invited_by,
		    token = EXCLUDED.token,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at,
		    accepted_at = NULL,
		    accepted_by = NULL
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		inv.WorkspaceID, inv.Email, inv.Role, inv.InvitedBy,
		inv.Token, inv.CreatedAt, inv.ExpiresAt,
	).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

// DeleteForEmail removes the invitation held by a workspace and email
func (s *PostgresStore) DeleteForEmail(ctx context.Context, workspaceID int64, email string) error {
	query := `DELETE FROM team_invitations WHERE workspace_id = $1 AND email = $2 AND accepted_at IS NULL`
	if _, err := s.db.ExecContext(ctx, query, workspaceID, email); err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}
	return nil
}

// GetPendingByToken retrieves an unaccepted invitation by token
func (s *PostgresStore) GetPendingByToken(ctx context.Context, token string) (*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM team_invitations WHERE token = $1 AND accepted_at IS NULL`
	inv, err := scanInvitation(s.db.QueryRowContext(ctx, query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvitationInvalidOrExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// GetPending retrieves an unaccepted invitation by ID within a workspace
func (s *PostgresStore) GetPending(ctx context.Context, workspaceID, id int64) (*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM team_invitations WHERE id = $1 AND workspace_id = $2 AND accepted_at IS NULL`
	inv, err := scanInvitation(s.db.QueryRowContext(ctx, query, id, workspaceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// Accept adds the user to the workspace and marks the invitation accepted.
// A removed membership is reactivated with the invited role.
func (s *PostgresStore) Accept(ctx context.Context, id, userID int64, now time.Time) (*workspaces.Membership, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT workspace_id, role, invited_by, expires_at, accepted_at
		FROM team_invitations
		WHERE id = $1
		FOR UPDATE
	`
	m := &workspaces.Membership{}
	var invitedBy int64
	var expiresAt time.Time
	var acceptedAt sql.NullTime
	err = tx.QueryRowContext(ctx, query, id).Scan(&m.WorkspaceID, &m.Role, &invitedBy, &expiresAt, &acceptedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvitationInvalidOrExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock invitation: %w", err)
	}
	if acceptedAt.Valid {
		return nil, ErrInvitationInvalidOrExpired
	}
	if now.After(expiresAt) {
		return nil, ErrInvitationExpired
	}

	query = `
		INSERT INTO team_members (workspace_id, user_id, role, status, joined_at, invited_by)
		VALUES ($1, $2, $3, 'active', $4, $5)
		ON CONFLICT (workspace_id, user_id) DO UPDATE
		SET role = EXCLUDED.role,
		    status = 'active',
		    joined_at = EXCLUDED.joined_at,
		    invited_by = EXCLUDED.invited_by
		WHERE team_members.status <> 'active'
		RETURNING id, joined_at
	`
	err = tx.QueryRowContext(ctx, query, m.WorkspaceID, userID, m.Role, now, invitedBy).Scan(&m.ID, &m.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlreadyMember
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	query = `UPDATE team_invitations SET accepted_at = $1, accepted_by = $2 WHERE id = $3 AND accepted_at IS NULL`
	result, err := tx.ExecContext(ctx, query, now, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update invitation: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrInvitationInvalidOrExpired
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit acceptance: %w", err)
	}

	m.UserID = userID
	m.Status = workspaces.MemberStatusActive
	m.InvitedBy = &invitedBy
	return m, nil
}

// Delete removes an unaccepted invitation
func (s *PostgresStore) Delete(ctx context.Context, workspaceID, id int64) error {
	query := `DELETE FROM team_invitations WHERE id = $1 AND workspace_id = $2 AND accepted_at IS NULL`
	result, err := s.db.ExecContext(ctx, query, id, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to cancel invitation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrInvitationNotFound
	}
	return nil
}

// ListPending lists live invitations for a workspace, newest first
func (s *PostgresStore) ListPending(ctx context.Context, workspaceID int64, now time.Time) ([]*Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM team_invitations
		WHERE workspace_id = $1 AND accepted_at IS NULL AND expires_at >= $2
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, workspaceID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invitations: %w", err)
	}

	return invitations, nil
}

// DeleteExpired removes unaccepted invitations whose expiry is before cutoff
func (s *PostgresStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM team_invitations WHERE expires_at < $1 AND accepted_at IS NULL`
	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired invitations: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// Preview joins a pending invitation with its workspace and inviter
func (s *PostgresStore) Preview(ctx context.Context, token string) (*Preview, error) {
	query := `
		SELECT w.name, i.email, i.role, COALESCE(NULLIF(u.display_name, ''), u.email, ''), i.expires_at
		FROM team_invitations i
		JOIN workspaces w ON w.id = i.workspace_id
		LEFT JOIN users u ON u.id = i.invited_by
		WHERE i.token = $1 AND i.accepted_at IS NULL
	`
	p := &Preview{}
	err := s.db.QueryRowContext(ctx, query, token).Scan(&p.WorkspaceName, &p.Email, &p.Role, &p.InviterName, &p.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvitationInvalidOrExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to preview invitation: %w", err)
	}
	return p, nil
}
