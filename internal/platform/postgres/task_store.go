package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/store"
)

// taskColumns is the column list shared by every task select.
const taskColumns = `id, source_id, source_message_id, title, description, priority,
	client_name, object_name, tags, due_text, due_at, confidence, status,
	assignee_id, tasks_chat_id, tasks_message_id, last_reminded_at,
	reminded_count, created_at, updated_at`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	tags, err := json.Marshal(task.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	query := `
		INSERT INTO tasks (id, source_id, source_message_id, title, description,
			priority, client_name, object_name, tags, due_text, due_at,
			confidence, status, assignee_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.SourceID,
		task.SourceMessageID,
		task.Title,
		task.Description,
		task.Priority,
		task.ClientName,
		task.ObjectName,
		tags,
		task.DueText,
		task.DueAt,
		task.Confidence,
		task.Status,
		task.AssigneeID,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrDuplicateTask
		}
		s.logger.Error("failed to create task",
			"task_id", task.ID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1`, taskColumns)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}

	return task, nil
}

// ExistsBySourceMessage implements store.TaskStore.ExistsBySourceMessage
func (s *PostgresTaskStore) ExistsBySourceMessage(ctx context.Context, sourceID uuid.UUID, messageID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM tasks WHERE source_id = $1 AND source_message_id = $2)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, sourceID, messageID).Scan(&exists); err != nil {
		return false, MapError(err)
	}

	return exists, nil
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE tasks
		SET status = $1, assignee_id = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		task.Status,
		task.AssigneeID,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		s.logger.Error("failed to update task",
			"task_id", task.ID,
			"error", err)
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		return store.ErrTaskNotFound
	}

	return nil
}

// SetCardCoordinates implements store.TaskStore.SetCardCoordinates
func (s *PostgresTaskStore) SetCardCoordinates(ctx context.Context, id uuid.UUID, chatID, messageID string) error {
	query := `
		UPDATE tasks
		SET tasks_chat_id = $1, tasks_message_id = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query, chatID, messageID, time.Now().UTC(), id)
	if err != nil {
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		return store.ErrTaskNotFound
	}

	return nil
}

// MarkReminded implements store.TaskStore.MarkReminded. The increment
// happens in SQL so concurrent ticks cannot lose an update.
func (s *PostgresTaskStore) MarkReminded(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE tasks
		SET last_reminded_at = now(), reminded_count = reminded_count + 1
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		return store.ErrTaskNotFound
	}

	return nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks`, taskColumns)

	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			`(title ILIKE $%d OR description ILIKE $%d OR client_name ILIKE $%d OR object_name ILIKE $%d)`,
			n, n, n, n))
	}

	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	query += " ORDER BY created_at DESC"

	return s.queryTasks(ctx, query, args...)
}

// ListStaleNew implements store.TaskStore.ListStaleNew
func (s *PostgresTaskStore) ListStaleNew(ctx context.Context, cutoff time.Time) ([]*domain.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE status = $1
		  AND created_at <= $2
		  AND (last_reminded_at IS NULL OR last_reminded_at <= $2)
		ORDER BY created_at ASC
	`, taskColumns)

	return s.queryTasks(ctx, query, domain.TaskStatusNew, cutoff)
}

// ListDueBetween implements store.TaskStore.ListDueBetween
func (s *PostgresTaskStore) ListDueBetween(ctx context.Context, from, to, remindedBefore time.Time) ([]*domain.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE status IN ($1, $2)
		  AND due_at IS NOT NULL
		  AND due_at >= $3
		  AND due_at <= $4
		  AND (last_reminded_at IS NULL OR last_reminded_at <= $5)
		ORDER BY due_at ASC
	`, taskColumns)

	return s.queryTasks(ctx, query,
		domain.TaskStatusNew, domain.TaskStatusInProgress, from, to, remindedBefore)
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

func (s *PostgresTaskStore) queryTasks(ctx context.Context, query string, args ...interface{}) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return tasks, nil
}

// rowScanner abstracts over *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var tags []byte

	err := row.Scan(
		&task.ID,
		&task.SourceID,
		&task.SourceMessageID,
		&task.Title,
		&task.Description,
		&task.Priority,
		&task.ClientName,
		&task.ObjectName,
		&tags,
		&task.DueText,
		&task.DueAt,
		&task.Confidence,
		&task.Status,
		&task.AssigneeID,
		&task.TasksChatID,
		&task.TasksMessageID,
		&task.LastRemindedAt,
		&task.RemindedCount,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &task.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags: %w", err)
		}
	}

	return &task, nil
}
