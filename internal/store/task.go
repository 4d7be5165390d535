package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/dvolkov/taskdesk/internal/domain"
)

// TaskFilter describes the browsing query surface: optional status match and
// an optional case-insensitive substring search over title, description,
// client name and object name.
type TaskFilter struct {
	Status *domain.TaskStatus
	Search string
}

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	// Create persists a new task. The (source_id, source_message_id) pair is
	// protected by a unique constraint; a violation is reported as
	// ErrDuplicateTask, which callers treat as the dedup outcome rather than
	// a failure.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ExistsBySourceMessage reports whether a task already exists for the
	// given source and platform message ID. This is an optimization only;
	// the unique constraint checked in Create is the source of truth.
	ExistsBySourceMessage(ctx context.Context, sourceID uuid.UUID, messageID string) (bool, error)

	// Update persists the task's status, assignee and updated_at fields.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// SetCardCoordinates records where the task's card was published for
	// human interaction.
	SetCardCoordinates(ctx context.Context, id uuid.UUID, chatID, messageID string) error

	// MarkReminded sets last_reminded_at to now and increments
	// reminded_count atomically in SQL, so concurrent ticks or a tick racing
	// a manual edit cannot lose an increment.
	MarkReminded(ctx context.Context, id uuid.UUID) error

	// List returns tasks matching the filter, newest first.
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// ListStaleNew returns NEW tasks created at or before cutoff whose
	// last_reminded_at is null or at or before cutoff.
	ListStaleNew(ctx context.Context, cutoff time.Time) ([]*domain.Task, error)

	// ListDueBetween returns NEW and IN_PROGRESS tasks with a due timestamp
	// inside [from, to] whose last_reminded_at is null or at or before
	// remindedBefore.
	ListDueBetween(ctx context.Context, from, to, remindedBefore time.Time) ([]*domain.Task, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}
