package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/platinummonkey/quill/pkg/contextkeys"
)

// ErrAuthenticationRequired is returned when a request carries no identity
var ErrAuthenticationRequired = errors.New("authentication required")

// ErrUserNotFound is returned by a Directory when no account matches
var ErrUserNotFound = errors.New("user not found")

// User represents an account known to the identity directory
type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"display_name"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// Name returns the display name, falling back to the local part of the email
func (u *User) Name() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if at := strings.IndexByte(u.Email, '@'); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

// Identity is the authenticated caller attached to a request
type Identity struct {
	UserID int64
	Email  string
	Name   string
}

// WithIdentity attaches an identity to the context
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return contextkeys.WithAuth(ctx, id)
}

// IdentityFromContext returns the identity attached to the context, or nil
func IdentityFromContext(ctx context.Context) *Identity {
	id, ok := ctx.Value(contextkeys.AuthKey).(*Identity)
	if !ok {
		return nil
	}
	return id
}

// RequireIdentity returns the identity attached to the context or
// ErrAuthenticationRequired
func RequireIdentity(ctx context.Context) (*Identity, error) {
	id := IdentityFromContext(ctx)
	if id == nil {
		return nil, ErrAuthenticationRequired
	}
	return id, nil
}

// NormalizeEmail lower-cases and trims an email address for comparison and storage
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Directory resolves user accounts (the administrative identity lookup)
type Directory interface {
	// GetUser returns the account with the given ID
	GetUser(ctx context.Context, id int64) (*User, error)

	// FindByEmail returns the account registered with the given email
	FindByEmail(ctx context.Context, email string) (*User, error)

	// LookupUsers returns the accounts for the given IDs, keyed by ID.
	// Unknown IDs are absent from the result.
	LookupUsers(ctx context.Context, ids []int64) (map[int64]*User, error)
}
