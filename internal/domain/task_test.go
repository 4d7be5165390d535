package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func validCandidate() *TaskCandidate {
	desc := "fix the cabinet door"
	return &TaskCandidate{
		IsTask:      true,
		Title:       "Call Ivanov",
		Description: &desc,
		Priority:    "normal",
		Tags:        []string{"call"},
		Confidence:  0.95,
	}
}

func TestNewTask(t *testing.T) {
	t.Parallel()

	sourceID := uuid.New()

	task, err := NewTask(sourceID, "456", validCandidate(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if task.SourceID != sourceID {
		t.Errorf("Expected source ID %s, got %s", sourceID, task.SourceID)
	}

	if task.Status != TaskStatusNew {
		t.Errorf("Expected status NEW, got %s", task.Status)
	}

	if task.Priority != TaskPriorityNormal {
		t.Errorf("Expected priority NORMAL, got %s", task.Priority)
	}

	if task.RemindedCount != 0 {
		t.Errorf("Expected reminded count 0, got %d", task.RemindedCount)
	}

	if task.LastRemindedAt != nil {
		t.Error("Expected nil LastRemindedAt on a fresh task")
	}

	if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
		t.Error("Expected non-zero creation timestamps")
	}
}

func TestNewTaskValidation(t *testing.T) {
	t.Parallel()

	// Empty title
	c := validCandidate()
	c.Title = ""
	if _, err := NewTask(uuid.New(), "456", c, nil); !errors.Is(err, ErrEmptyTaskTitle) {
		t.Errorf("Expected ErrEmptyTaskTitle, got %v", err)
	}

	// Unknown priority
	c = validCandidate()
	c.Priority = "urgent"
	if _, err := NewTask(uuid.New(), "456", c, nil); !errors.Is(err, ErrInvalidTaskPriority) {
		t.Errorf("Expected ErrInvalidTaskPriority, got %v", err)
	}

	// Missing source
	if _, err := NewTask(uuid.Nil, "456", validCandidate(), nil); !errors.Is(err, ErrEmptyTaskSourceID) {
		t.Errorf("Expected ErrEmptyTaskSourceID, got %v", err)
	}

	// Missing message ID
	if _, err := NewTask(uuid.New(), "", validCandidate(), nil); !errors.Is(err, ErrEmptyTaskMessageID) {
		t.Errorf("Expected ErrEmptyTaskMessageID, got %v", err)
	}
}

func TestStatusForAction(t *testing.T) {
	t.Parallel()

	cases := map[TaskAction]TaskStatus{
		TaskActionTook:     TaskStatusInProgress,
		TaskActionClarify:  TaskStatusClarification,
		TaskActionPostpone: TaskStatusPostponed,
		TaskActionDone:     TaskStatusDone,
		TaskActionReject:   TaskStatusRejected,
	}

	for action, want := range cases {
		got, err := StatusForAction(action)
		if err != nil {
			t.Fatalf("Expected no error for action %q, got %v", action, err)
		}
		if got != want {
			t.Errorf("Expected action %q to map to %q, got %q", action, want, got)
		}
	}

	if _, err := StatusForAction("archive"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("Expected ErrUnknownAction, got %v", err)
	}
}

func TestPriorityFromCandidate(t *testing.T) {
	t.Parallel()

	cases := map[string]TaskPriority{
		"low":    TaskPriorityLow,
		"normal": TaskPriorityNormal,
		"high":   TaskPriorityHigh,
	}

	for raw, want := range cases {
		got, err := PriorityFromCandidate(raw)
		if err != nil {
			t.Fatalf("Expected no error for priority %q, got %v", raw, err)
		}
		if got != want {
			t.Errorf("Expected priority %q to map to %q, got %q", raw, want, got)
		}
	}

	if _, err := PriorityFromCandidate("HIGH"); !errors.Is(err, ErrInvalidTaskPriority) {
		t.Errorf("Expected ErrInvalidTaskPriority for uppercase input, got %v", err)
	}
}

func TestTaskValidateStatus(t *testing.T) {
	t.Parallel()

	task, err := NewTask(uuid.New(), "456", validCandidate(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	task.Status = "ARCHIVED"
	if err := task.Validate(); !errors.Is(err, ErrInvalidTaskStatus) {
		t.Errorf("Expected ErrInvalidTaskStatus, got %v", err)
	}
}
