package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/dvolkov/taskdesk/internal/domain"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	// GetByID retrieves a user by ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetOrCreateByUsername resolves the user with the given handle, creating
	// one when absent. Atomic conditional insert; an existing user's identity
	// fields are never touched.
	GetOrCreateByUsername(ctx context.Context, username string) (*domain.User, error)

	// UpsertSender resolves the sender by platform ID (preferred) or handle,
	// creating the user when absent. Identity fields are never overwritten;
	// only the display name is refreshed when a non-empty name is provided.
	UpsertSender(ctx context.Context, telegramID, telegramUsername, name *string) (*domain.User, error)

	// WithTx returns a new UserStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) UserStore
}
