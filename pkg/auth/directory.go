package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresDirectory implements Directory over the users table
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgresDirectory creates a new PostgresDirectory
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

const userColumns = `id, email, display_name, email_verified, created_at`

// GetUser retrieves a user by ID
func (d *PostgresDirectory) GetUser(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(d.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// FindByEmail retrieves a user by email, compared case-insensitively
func (d *PostgresDirectory) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = $1`
	user, err := scanUser(d.db.QueryRowContext(ctx, query, NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// LookupUsers retrieves several users in one query
func (d *PostgresDirectory) LookupUsers(ctx context.Context, ids []int64) (map[int64]*User, error) {
	users := make(map[int64]*User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`
	rows, err := d.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to lookup users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

func scanUser(scanner interface {
	Scan(dest ...interface{}) error
}) (*User, error) {
	user := &User{}
	var displayName sql.NullString
	if err := scanner.Scan(&user.ID, &user.Email, &displayName, &user.EmailVerified, &user.CreatedAt); err != nil {
		return nil, err
	}
	if displayName.Valid {
		user.DisplayName = displayName.String
	}
	return user, nil
}
