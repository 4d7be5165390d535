package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

// Possible task status values. REJECTED is terminal only in the sense that
// the published card is withdrawn; the record itself is never deleted.
const (
	TaskStatusNew           TaskStatus = "NEW"
	TaskStatusInProgress    TaskStatus = "IN_PROGRESS"
	TaskStatusClarification TaskStatus = "CLARIFICATION"
	TaskStatusPostponed     TaskStatus = "POSTPONED"
	TaskStatusDone          TaskStatus = "DONE"
	TaskStatusRejected      TaskStatus = "REJECTED"
)

// TaskPriority represents the urgency of a task.
type TaskPriority string

// Possible task priority values
const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityNormal TaskPriority = "NORMAL"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// TaskAction is a board action an external actor can apply to a task.
// Each action maps 1:1 to a target status.
type TaskAction string

// Board actions exposed on the published task card.
const (
	TaskActionTook     TaskAction = "took"
	TaskActionClarify  TaskAction = "clarify"
	TaskActionPostpone TaskAction = "postpone"
	TaskActionDone     TaskAction = "done"
	TaskActionReject   TaskAction = "reject"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID        = errors.New("task ID cannot be empty")
	ErrEmptyTaskSourceID  = errors.New("task source ID cannot be empty")
	ErrEmptyTaskMessageID = errors.New("task source message ID cannot be empty")
	ErrEmptyTaskTitle     = errors.New("task title cannot be empty")
)

// Task is a durable work item extracted from a chat message. It is created
// with status NEW and mutated only through status transitions and reminder
// bookkeeping; tasks are never physically deleted.
type Task struct {
	ID              uuid.UUID    `json:"id"`
	SourceID        uuid.UUID    `json:"source_id"`
	SourceMessageID string       `json:"source_message_id"`
	Title           string       `json:"title"`
	Description     *string      `json:"description"`
	Priority        TaskPriority `json:"priority"`
	ClientName      *string      `json:"client_name"`
	ObjectName      *string      `json:"object_name"`
	Tags            []string     `json:"tags"`
	DueText         *string      `json:"due_text"`
	DueAt           *time.Time   `json:"due_at"`
	Confidence      float64      `json:"confidence"`
	Status          TaskStatus   `json:"status"`
	AssigneeID      *uuid.UUID   `json:"assignee_id"`
	TasksChatID     *string      `json:"tasks_chat_id"`
	TasksMessageID  *string      `json:"tasks_message_id"`
	LastRemindedAt  *time.Time   `json:"last_reminded_at"`
	RemindedCount   int          `json:"reminded_count"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// NewTask creates a Task from an accepted candidate and its provenance.
// The task starts in status NEW with zeroed reminder bookkeeping.
// Returns an error if validation fails.
func NewTask(sourceID uuid.UUID, sourceMessageID string, c *TaskCandidate, dueAt *time.Time) (*Task, error) {
	priority, err := PriorityFromCandidate(c.Priority)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task := &Task{
		ID:              uuid.New(),
		SourceID:        sourceID,
		SourceMessageID: sourceMessageID,
		Title:           c.Title,
		Description:     c.Description,
		Priority:        priority,
		ClientName:      c.ClientName,
		ObjectName:      c.ObjectName,
		Tags:            c.Tags,
		DueText:         c.DueText,
		DueAt:           dueAt,
		Confidence:      c.Confidence,
		Status:          TaskStatusNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.SourceID == uuid.Nil {
		return ErrEmptyTaskSourceID
	}

	if t.SourceMessageID == "" {
		return ErrEmptyTaskMessageID
	}

	if t.Title == "" {
		return ErrEmptyTaskTitle
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	if !isValidTaskPriority(t.Priority) {
		return ErrInvalidTaskPriority
	}

	return nil
}

// StatusForAction maps a board action to its target status. Transitions are
// an open graph: any status may move to any other, so a mis-click can always
// be corrected with a follow-up action.
func StatusForAction(action TaskAction) (TaskStatus, error) {
	switch action {
	case TaskActionTook:
		return TaskStatusInProgress, nil
	case TaskActionClarify:
		return TaskStatusClarification, nil
	case TaskActionPostpone:
		return TaskStatusPostponed, nil
	case TaskActionDone:
		return TaskStatusDone, nil
	case TaskActionReject:
		return TaskStatusRejected, nil
	default:
		return "", ErrUnknownAction
	}
}

// PriorityFromCandidate maps a candidate priority (low/normal/high) to a
// TaskPriority.
func PriorityFromCandidate(priority string) (TaskPriority, error) {
	switch priority {
	case "low":
		return TaskPriorityLow, nil
	case "normal":
		return TaskPriorityNormal, nil
	case "high":
		return TaskPriorityHigh, nil
	default:
		return "", ErrInvalidTaskPriority
	}
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusNew, TaskStatusInProgress, TaskStatusClarification,
		TaskStatusPostponed, TaskStatusDone, TaskStatusRejected:
		return true
	default:
		return false
	}
}

// isValidTaskPriority checks if the given priority is a valid TaskPriority.
func isValidTaskPriority(priority TaskPriority) bool {
	switch priority {
	case TaskPriorityLow, TaskPriorityNormal, TaskPriorityHigh:
		return true
	default:
		return false
	}
}
