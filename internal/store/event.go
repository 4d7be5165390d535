package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/dvolkov/taskdesk/internal/domain"
)

// TaskEventStore defines the interface for the append-only task event log.
type TaskEventStore interface {
	// Append persists an event. Events are immutable: there is no update or
	// delete path.
	Append(ctx context.Context, event *domain.TaskEvent) error

	// ListByTaskID returns a task's events, newest first.
	ListByTaskID(ctx context.Context, taskID uuid.UUID) ([]*domain.TaskEvent, error)

	// WithTx returns a new TaskEventStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskEventStore
}
