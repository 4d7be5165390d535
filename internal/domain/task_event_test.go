package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewCreatedEvent(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	userID := uuid.New()

	event, err := NewCreatedEvent(taskID, &userID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if event.Type != EventTypeCreated {
		t.Errorf("Expected type CREATED, got %s", event.Type)
	}

	if event.OldStatus != nil {
		t.Error("Expected nil old status for a CREATED event")
	}

	if event.NewStatus != TaskStatusNew {
		t.Errorf("Expected new status NEW, got %s", event.NewStatus)
	}

	if event.UserID == nil || *event.UserID != userID {
		t.Error("Expected acting user to be recorded")
	}

	if _, err := NewCreatedEvent(uuid.Nil, nil); !errors.Is(err, ErrEmptyEventTaskID) {
		t.Errorf("Expected ErrEmptyEventTaskID, got %v", err)
	}
}

func TestNewStatusChangedEvent(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()

	event, err := NewStatusChangedEvent(taskID, TaskStatusNew, TaskStatusDone, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if event.Type != EventTypeStatusChanged {
		t.Errorf("Expected type STATUS_CHANGED, got %s", event.Type)
	}

	if event.OldStatus == nil || *event.OldStatus != TaskStatusNew {
		t.Error("Expected old status NEW to be recorded")
	}

	if event.NewStatus != TaskStatusDone {
		t.Errorf("Expected new status DONE, got %s", event.NewStatus)
	}

	if _, err := NewStatusChangedEvent(taskID, "BOGUS", TaskStatusDone, nil); !errors.Is(err, ErrInvalidTaskStatus) {
		t.Errorf("Expected ErrInvalidTaskStatus for bogus old status, got %v", err)
	}
}
