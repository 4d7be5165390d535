package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidTaskStatus is returned when a task status is not one of the
	// closed status enumeration.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrInvalidTaskPriority is returned when a priority is not LOW, NORMAL or HIGH.
	ErrInvalidTaskPriority = errors.New("invalid task priority")

	// ErrUnknownAction is returned when a board action does not map to a status.
	ErrUnknownAction = errors.New("unknown task action")

	// ErrInvalidChannelType is returned when a source channel type is unknown.
	ErrInvalidChannelType = errors.New("invalid channel type")

	// ErrMissingIdentity is returned when a user carries neither a platform ID
	// nor a handle.
	ErrMissingIdentity = errors.New("user must have a platform ID or a handle")
)
