package store

import (
	"context"
	"database/sql"

	"github.com/dvolkov/taskdesk/internal/domain"
)

// SourceStore defines the interface for source persistence.
type SourceStore interface {
	// GetOrCreate resolves the source for (channel, externalID), creating it
	// when absent. The operation is an atomic conditional insert, never an
	// application-level check-then-create: concurrent workers racing on the
	// same conversation must converge on a single row. An existing source is
	// never destructively overwritten; a missing display name may be filled
	// in from the given name.
	GetOrCreate(ctx context.Context, channel domain.ChannelType, externalID string, name *string) (*domain.Source, error)

	// Create persists a source explicitly (administrative path).
	Create(ctx context.Context, source *domain.Source) error

	// List returns all sources, newest first.
	List(ctx context.Context) ([]*domain.Source, error)

	// WithTx returns a new SourceStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) SourceStore
}
