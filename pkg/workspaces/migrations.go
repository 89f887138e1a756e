package workspaces

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/quill/pkg/observability"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the schema for users, workspaces, memberships,
// invitations and the activity log, in order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users table",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					email VARCHAR(320) NOT NULL,
					display_name VARCHAR(255),
					email_verified BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(lower(email));
			`,
		},
		{
			Version:     2,
			Description: "Create workspaces table",
			SQL: `
				CREATE TABLE IF NOT EXISTS workspaces (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					owner_id BIGINT NOT NULL REFERENCES users(id),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_workspaces_owner_id ON workspaces(owner_id);
			`,
		},
		{
			Version:     3,
			Description: "Create team_members table",
			SQL: `
				CREATE TABLE IF NOT EXISTS team_members (
					id BIGSERIAL PRIMARY KEY,
					workspace_id BIGINT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					role VARCHAR(20) NOT NULL CHECK (role IN ('owner', 'admin', 'editor', 'viewer')),
					status VARCHAR(20) NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'removed')),
					joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					invited_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
					UNIQUE (workspace_id, user_id)
				);

				CREATE INDEX IF NOT EXISTS idx_team_members_user_status ON team_members(user_id, status);
			`,
		},
		{
			Version:     4,
			Description: "Create team_invitations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS team_invitations (
					id BIGSERIAL PRIMARY KEY,
					workspace_id BIGINT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
					email VARCHAR(320) NOT NULL,
					role VARCHAR(20) NOT NULL CHECK (role IN ('admin', 'editor', 'viewer')),
					invited_by BIGINT NOT NULL REFERENCES users(id),
					token VARCHAR(64) NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					expires_at TIMESTAMPTZ NOT NULL,
					accepted_at TIMESTAMPTZ,
					accepted_by BIGINT REFERENCES users(id),
					UNIQUE (workspace_id, email)
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_team_invitations_token ON team_invitations(token);
				CREATE INDEX IF NOT EXISTS idx_team_invitations_pending
					ON team_invitations(workspace_id, expires_at) WHERE accepted_at IS NULL;
			`,
		},
		{
			Version:     5,
			Description: "Create activity_log table",
			SQL: `
				CREATE TABLE IF NOT EXISTS activity_log (
					id BIGSERIAL PRIMARY KEY,
					workspace_id BIGINT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL,
					action VARCHAR(100) NOT NULL,
					resource_type VARCHAR(50),
					resource_id VARCHAR(255),
					details JSONB,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_activity_log_workspace_created
					ON activity_log(workspace_id, created_at DESC);
			`,
		},
	}
}

// ErrSchemaBehind means the database has not been migrated to the latest
// version this build ships
var ErrSchemaBehind = errors.New("schema migrations pending")

// LatestSchemaVersion is the highest migration version this build ships
func LatestSchemaVersion() int {
	latest := 0
	for _, m := range GetMigrations() {
		if m.Version > latest {
			latest = m.Version
		}
	}
	return latest
}

// SchemaVersion returns the highest applied migration, or 0 on a database
// that has never been migrated
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM quill_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// SchemaCheck is a required readiness check that fails until RunMigrations
// has brought the database up to LatestSchemaVersion
func SchemaCheck(db *sql.DB) observability.ReadinessCheck {
	return observability.ReadinessCheck{
		Name:     "schema",
		Required: true,
		Run: func(ctx context.Context) error {
			current, err := SchemaVersion(ctx, db)
			if err != nil {
				return err
			}
			if want := LatestSchemaVersion(); current < want {
				return fmt.Errorf("%w: at version %d, want %d", ErrSchemaBehind, current, want)
			}
			return nil
		},
	}
}

// RunMigrations executes all pending migrations, each in its own transaction
func RunMigrations(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS quill_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM quill_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		log := logger.WithFields(map[string]interface{}{
			"version":     migration.Version,
			"description": migration.Description,
		})
		log.Info("Running migration")

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO quill_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
