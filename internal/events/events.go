package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the service layer.
const (
	// EventTaskCreated is emitted after a task has been committed to the
	// store. Handlers typically publish the task card to the tasks chat.
	EventTaskCreated = "task_created"

	// EventTaskStatusChanged is emitted after a status transition has been
	// committed.
	EventTaskStatusChanged = "task_status_changed"
)

// TaskCreatedPayload carries the identifier of the newly created task.
type TaskCreatedPayload struct {
	TaskID uuid.UUID `json:"task_id"`
}

// TaskStatusChangedPayload carries the identifier and transition details of
// an updated task.
type TaskStatusChangedPayload struct {
	TaskID    uuid.UUID `json:"task_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
}

// Event represents a notification that something happened in the domain.
// It carries the event-specific data as JSON so emitters and handlers stay
// decoupled from each other's packages.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates what happened, e.g. EventTaskCreated
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// Handler defines an interface for components that can handle events.
type Handler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// Emitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type Emitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *Event) error
}
