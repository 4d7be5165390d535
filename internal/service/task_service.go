package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/events"
	"github.com/dvolkov/taskdesk/internal/store"
)

// CreateTaskInput carries everything needed to persist an accepted
// candidate: the candidate itself plus the provenance of the message it was
// extracted from.
type CreateTaskInput struct {
	Candidate        *domain.TaskCandidate
	SourceType       domain.ChannelType
	SourceExternalID string
	SourceMessageID  string
	SourceName       *string
	SenderTelegramID *string
	SenderUsername   *string
	SenderName       *string
}

// TaskUpdate is the result of a board action: the updated task plus the
// status it transitioned from.
type TaskUpdate struct {
	Task      *domain.Task
	OldStatus domain.TaskStatus
}

// TaskDetail is a task together with its full event history, newest first.
type TaskDetail struct {
	Task   *domain.Task
	Events []*domain.TaskEvent
}

// TaskService orchestrates task creation, lifecycle transitions and
// reminder bookkeeping. All multi-row writes run inside a single database
// transaction; notification events are emitted only after commit.
type TaskService struct {
	transactor store.Transactor
	tasks      store.TaskStore
	sources    store.SourceStore
	users      store.UserStore
	taskEvents store.TaskEventStore
	emitter    events.Emitter
	logger     *slog.Logger
}

// NewTaskService creates a new TaskService.
func NewTaskService(
	transactor store.Transactor,
	tasks store.TaskStore,
	sources store.SourceStore,
	users store.UserStore,
	taskEvents store.TaskEventStore,
	emitter events.Emitter,
	logger *slog.Logger,
) *TaskService {
	return &TaskService{
		transactor: transactor,
		tasks:      tasks,
		sources:    sources,
		users:      users,
		taskEvents: taskEvents,
		emitter:    emitter,
		logger:     logger.With("component", "task_service"),
	}
}

// CreateTask persists an accepted candidate as a new task. Source and
// assignee resolution, the task insert and the CREATED event all happen in
// one transaction, so a task row always has its provenance and log entry.
//
// A second message with the same (source, message ID) pair returns
// store.ErrDuplicateTask; callers treat that as the dedup outcome, not a
// failure. The unique constraint, not the preliminary existence check, is
// what guarantees exactly one task per message under concurrency.
func (s *TaskService) CreateTask(ctx context.Context, in CreateTaskInput) (*domain.Task, error) {
	log := s.logger.With(
		"source_type", in.SourceType,
		"source_message_id", in.SourceMessageID,
	)

	var created *domain.Task

	err := s.transactor.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		sources := s.sources.WithTx(tx)
		users := s.users.WithTx(tx)
		tasks := s.tasks.WithTx(tx)
		taskEvents := s.taskEvents.WithTx(tx)

		source, err := sources.GetOrCreate(ctx, in.SourceType, in.SourceExternalID, in.SourceName)
		if err != nil {
			return fmt.Errorf("failed to resolve source: %w", err)
		}

		exists, err := tasks.ExistsBySourceMessage(ctx, source.ID, in.SourceMessageID)
		if err != nil {
			return fmt.Errorf("failed to check for existing task: %w", err)
		}
		if exists {
			return store.ErrDuplicateTask
		}

		var assigneeID *uuid.UUID
		if username := normalizeUsername(in.Candidate.Assignee); username != "" {
			assignee, err := users.GetOrCreateByUsername(ctx, username)
			if err != nil {
				return fmt.Errorf("failed to resolve assignee: %w", err)
			}
			assigneeID = &assignee.ID
		}

		if in.SenderTelegramID != nil || in.SenderUsername != nil {
			if _, err := users.UpsertSender(ctx, in.SenderTelegramID, in.SenderUsername, in.SenderName); err != nil {
				return fmt.Errorf("failed to upsert sender: %w", err)
			}
		}

		dueAt := s.parseDueAt(in.Candidate.DueAt, log)

		task, err := domain.NewTask(source.ID, in.SourceMessageID, in.Candidate, dueAt)
		if err != nil {
			return fmt.Errorf("failed to build task: %w", err)
		}
		task.AssigneeID = assigneeID

		if err := tasks.Create(ctx, task); err != nil {
			// ErrDuplicateTask passes through untouched for the dedup path.
			return err
		}

		event, err := domain.NewCreatedEvent(task.ID, assigneeID)
		if err != nil {
			return fmt.Errorf("failed to build created event: %w", err)
		}
		if err := taskEvents.Append(ctx, event); err != nil {
			return fmt.Errorf("failed to append created event: %w", err)
		}

		created = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("task created",
		"task_id", created.ID,
		"priority", created.Priority,
		"confidence", created.Confidence)

	s.emitTaskCreated(ctx, created)

	return created, nil
}

// ApplyAction performs a board action on a task: resolves the target
// status, updates the task, records the STATUS_CHANGED event and assigns
// the task to the acting user. Transitions form an open graph, so a
// mis-click can always be corrected with another action.
func (s *TaskService) ApplyAction(
	ctx context.Context,
	taskID uuid.UUID,
	action domain.TaskAction,
	actorID *uuid.UUID,
) (*TaskUpdate, error) {
	newStatus, err := domain.StatusForAction(action)
	if err != nil {
		return nil, err
	}

	var update *TaskUpdate

	err = s.transactor.RunInTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)
		taskEvents := s.taskEvents.WithTx(tx)

		task, err := tasks.GetByID(ctx, taskID)
		if err != nil {
			return err
		}

		oldStatus := task.Status
		task.Status = newStatus
		task.UpdatedAt = time.Now().UTC()

		// Whoever acts on a task owns it; a task keeps its previous
		// assignee only when the actor is unknown.
		if actorID != nil {
			task.AssigneeID = actorID
		}

		if err := tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		event, err := domain.NewStatusChangedEvent(task.ID, oldStatus, newStatus, actorID)
		if err != nil {
			return fmt.Errorf("failed to build status event: %w", err)
		}
		if err := taskEvents.Append(ctx, event); err != nil {
			return fmt.Errorf("failed to append status event: %w", err)
		}

		update = &TaskUpdate{Task: task, OldStatus: oldStatus}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task status changed",
		"task_id", taskID,
		"action", action,
		"old_status", update.OldStatus,
		"new_status", update.Task.Status)

	s.emitStatusChanged(ctx, update)

	return update, nil
}

// GetTaskByID retrieves a task without its event history.
func (s *TaskService) GetTaskByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

// GetTask retrieves a task together with its event history.
func (s *TaskService) GetTask(ctx context.Context, id uuid.UUID) (*TaskDetail, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	taskEvents, err := s.taskEvents.ListByTaskID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load task events: %w", err)
	}

	return &TaskDetail{Task: task, Events: taskEvents}, nil
}

// ListTasks returns tasks matching the filter, newest first.
func (s *TaskService) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	return s.tasks.List(ctx, filter)
}

// GetUser retrieves a user by ID.
func (s *TaskService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// ResolveActor resolves the user performing a board action from their
// platform identity, creating the user record when absent.
func (s *TaskService) ResolveActor(ctx context.Context, telegramID, telegramUsername, name *string) (*domain.User, error) {
	return s.users.UpsertSender(ctx, telegramID, telegramUsername, name)
}

// SetCardCoordinates records where a task's card was published.
func (s *TaskService) SetCardCoordinates(ctx context.Context, id uuid.UUID, chatID, messageID string) error {
	return s.tasks.SetCardCoordinates(ctx, id, chatID, messageID)
}

// MarkReminded records that a reminder was sent for the task.
func (s *TaskService) MarkReminded(ctx context.Context, id uuid.UUID) error {
	return s.tasks.MarkReminded(ctx, id)
}

// StaleNewTasks returns NEW tasks that have been waiting since before
// cutoff without a recent reminder.
func (s *TaskService) StaleNewTasks(ctx context.Context, cutoff time.Time) ([]*domain.Task, error) {
	return s.tasks.ListStaleNew(ctx, cutoff)
}

// DueTasksBetween returns open tasks due inside [from, to] without a
// reminder since remindedBefore.
func (s *TaskService) DueTasksBetween(ctx context.Context, from, to, remindedBefore time.Time) ([]*domain.Task, error) {
	return s.tasks.ListDueBetween(ctx, from, to, remindedBefore)
}

// parseDueAt converts the candidate's RFC 3339 due timestamp. A malformed
// value degrades to no deadline rather than failing the whole creation; the
// free-text due phrase is kept on the task either way.
func (s *TaskService) parseDueAt(raw *string, log *slog.Logger) *time.Time {
	if raw == nil || *raw == "" {
		return nil
	}

	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		log.Warn("unparseable due timestamp, keeping task without deadline",
			"due_at", *raw,
			"error", err)
		return nil
	}

	return &t
}

func (s *TaskService) emitTaskCreated(ctx context.Context, task *domain.Task) {
	event, err := events.NewEvent(events.EventTaskCreated, events.TaskCreatedPayload{TaskID: task.ID})
	if err != nil {
		s.logger.Error("failed to build task_created event", "error", err, "task_id", task.ID)
		return
	}

	// Notification failures never undo a committed task.
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit task_created event", "error", err, "task_id", task.ID)
	}
}

func (s *TaskService) emitStatusChanged(ctx context.Context, update *TaskUpdate) {
	event, err := events.NewEvent(events.EventTaskStatusChanged, events.TaskStatusChangedPayload{
		TaskID:    update.Task.ID,
		OldStatus: string(update.OldStatus),
		NewStatus: string(update.Task.Status),
	})
	if err != nil {
		s.logger.Error("failed to build task_status_changed event", "error", err, "task_id", update.Task.ID)
		return
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit task_status_changed event", "error", err, "task_id", update.Task.ID)
	}
}

// normalizeUsername strips the leading @ and surrounding whitespace from an
// extracted assignee handle.
func normalizeUsername(raw *string) string {
	if raw == nil {
		return ""
	}
	return strings.TrimPrefix(strings.TrimSpace(*raw), "@")
}
