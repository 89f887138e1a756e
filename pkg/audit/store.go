package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Store persists activity log entries
type Store interface {
	// Insert appends an entry and fills in its ID and CreatedAt
	Insert(ctx context.Context, entry *Entry) error

	// Recent returns up to limit entries for a workspace, newest first
	Recent(ctx context.Context, workspaceID int64, limit int) ([]*Entry, error)
}

// PostgresStore implements Store over the activity_log table
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert appends an activity log row
func (s *PostgresStore) Insert(ctx context.Context, entry *Entry) error {
	var details interface{}
	if entry.Details != nil {
		detailsJSON, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
		details = detailsJSON
	}

	query := `
		INSERT INTO activity_log (workspace_id, user_id, action, resource_type, resource_id, details)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
		RETURNING id, created_at
	`
	err := s.db.QueryRowContext(ctx, query,
		entry.WorkspaceID, entry.UserID, entry.Action,
		entry.ResourceType, entry.ResourceID, details,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	return nil
}

// Recent returns the newest entries for a workspace
func (s *PostgresStore) Recent(ctx context.Context, workspaceID int64, limit int) ([]*Entry, error) {
	query := `
		SELECT id, workspace_id, user_id, action, resource_type, resource_id, details, created_at
		FROM activity_log
		WHERE workspace_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry := &Entry{}
		var resourceType, resourceID sql.NullString
		var detailsJSON []byte
		if err := rows.Scan(
			&entry.ID, &entry.WorkspaceID, &entry.UserID, &entry.Action,
			&resourceType, &resourceID, &detailsJSON, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		entry.ResourceType = ResourceType(resourceType.String)
		entry.ResourceID = resourceID.String
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity: %w", err)
	}

	return entries, nil
}
