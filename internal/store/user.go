package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/carboncoin/carboncoin-api/internal/domain"
)

// UserStore defines user persistence.
type UserStore interface {
	// Create saves a new user. The user's plaintext password must already be
	// hashed into HashedPassword by the caller.
	// Returns ErrUsernameExists if the username is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByUsername retrieves a user by username.
	// Returns ErrUserNotFound if the user does not exist.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// Update modifies an existing user. The caller must provide a complete
	// user including HashedPassword.
	// Returns ErrUserNotFound if the user does not exist.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user by ID.
	// Returns ErrUserNotFound if the user does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// Count returns the number of registered users.
	Count(ctx context.Context) (int, error)

	// WithTx returns a UserStore bound to the given transaction.
	WithTx(tx *sql.Tx) UserStore
}
