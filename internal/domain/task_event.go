package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventType classifies a task event log entry.
type EventType string

// Possible event types
const (
	EventTypeCreated       EventType = "CREATED"
	EventTypeStatusChanged EventType = "STATUS_CHANGED"
)

// Common validation errors for TaskEvent
var (
	ErrEmptyEventID     = errors.New("event ID cannot be empty")
	ErrEmptyEventTaskID = errors.New("event task ID cannot be empty")
)

// TaskEvent is an immutable, append-only log entry recorded alongside every
// task creation and every status transition. Events are never mutated or
// deleted, so the log reconstructs the true transition order as long as the
// store serializes writes to the same task row.
type TaskEvent struct {
	ID        uuid.UUID   `json:"id"`
	TaskID    uuid.UUID   `json:"task_id"`
	Type      EventType   `json:"type"`
	OldStatus *TaskStatus `json:"old_status"`
	NewStatus TaskStatus  `json:"new_status"`
	UserID    *uuid.UUID  `json:"user_id"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewCreatedEvent builds the CREATED event for a freshly persisted task.
// The acting user is the resolved assignee, when one exists.
func NewCreatedEvent(taskID uuid.UUID, userID *uuid.UUID) (*TaskEvent, error) {
	event := &TaskEvent{
		ID:        uuid.New(),
		TaskID:    taskID,
		Type:      EventTypeCreated,
		NewStatus: TaskStatusNew,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	return event, nil
}

// NewStatusChangedEvent builds the STATUS_CHANGED event for a transition.
func NewStatusChangedEvent(
	taskID uuid.UUID,
	oldStatus, newStatus TaskStatus,
	userID *uuid.UUID,
) (*TaskEvent, error) {
	event := &TaskEvent{
		ID:        uuid.New(),
		TaskID:    taskID,
		Type:      EventTypeStatusChanged,
		OldStatus: &oldStatus,
		NewStatus: newStatus,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	return event, nil
}

// Validate checks if the TaskEvent has valid data.
func (e *TaskEvent) Validate() error {
	if e.ID == uuid.Nil {
		return ErrEmptyEventID
	}

	if e.TaskID == uuid.Nil {
		return ErrEmptyEventTaskID
	}

	if !isValidTaskStatus(e.NewStatus) {
		return ErrInvalidTaskStatus
	}

	if e.OldStatus != nil && !isValidTaskStatus(*e.OldStatus) {
		return ErrInvalidTaskStatus
	}

	return nil
}
