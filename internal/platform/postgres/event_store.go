package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/store"
)

// PostgresTaskEventStore implements the store.TaskEventStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskEventStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskEventStore creates a new PostgreSQL implementation of the
// TaskEventStore interface.
func NewPostgresTaskEventStore(db store.DBTX, logger *slog.Logger) *PostgresTaskEventStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskEventStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_event_store")),
	}
}

// Ensure PostgresTaskEventStore implements store.TaskEventStore interface
var _ store.TaskEventStore = (*PostgresTaskEventStore)(nil)

// Append implements store.TaskEventStore.Append
func (s *PostgresTaskEventStore) Append(ctx context.Context, event *domain.TaskEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO task_events (id, task_id, type, old_status, new_status, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.TaskID,
		event.Type,
		event.OldStatus,
		event.NewStatus,
		event.UserID,
		event.CreatedAt,
	)
	if err != nil {
		s.logger.Error("failed to append task event",
			"event_id", event.ID,
			"task_id", event.TaskID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// ListByTaskID implements store.TaskEventStore.ListByTaskID
func (s *PostgresTaskEventStore) ListByTaskID(ctx context.Context, taskID uuid.UUID) ([]*domain.TaskEvent, error) {
	query := `
		SELECT id, task_id, type, old_status, new_status, user_id, created_at
		FROM task_events
		WHERE task_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var taskEvents []*domain.TaskEvent
	for rows.Next() {
		var event domain.TaskEvent
		err := rows.Scan(
			&event.ID,
			&event.TaskID,
			&event.Type,
			&event.OldStatus,
			&event.NewStatus,
			&event.UserID,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, MapError(err)
		}
		taskEvents = append(taskEvents, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return taskEvents, nil
}

// WithTx implements store.TaskEventStore.WithTx
func (s *PostgresTaskEventStore) WithTx(tx *sql.Tx) store.TaskEventStore {
	return &PostgresTaskEventStore{
		db:     tx,
		logger: s.logger,
	}
}
