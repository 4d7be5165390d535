package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewUser(t *testing.T) {
	t.Parallel()

	id := "12345"
	username := "ipetrov"
	name := "Иван Петров"

	user, err := NewUser(&id, &username, &name)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if user.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if user.TelegramID == nil || *user.TelegramID != id {
		t.Errorf("Expected telegram ID %q, got %v", id, user.TelegramID)
	}

	if user.Name == nil || *user.Name != name {
		t.Errorf("Expected name %q, got %v", name, user.Name)
	}
}

func TestNewUserFromBareHandleGetsDisplayName(t *testing.T) {
	t.Parallel()

	username := "ipetrov"

	user, err := NewUser(nil, &username, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if user.Name == nil {
		t.Fatal("Expected handle as display name, got nil")
	}

	if *user.Name != username {
		t.Errorf("Expected display name %q, got %q", username, *user.Name)
	}
}

func TestNewUserKeepsExplicitName(t *testing.T) {
	t.Parallel()

	username := "ipetrov"
	name := "Иван"

	user, err := NewUser(nil, &username, &name)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if user.Name == nil || *user.Name != name {
		t.Errorf("Expected name %q, got %v", name, user.Name)
	}
}

func TestNewUserRequiresIdentity(t *testing.T) {
	t.Parallel()

	name := "Иван"

	_, err := NewUser(nil, nil, &name)
	if !errors.Is(err, ErrMissingIdentity) {
		t.Errorf("Expected ErrMissingIdentity, got %v", err)
	}
}
