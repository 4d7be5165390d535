package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ChannelType identifies the chat platform a source lives on.
type ChannelType string

// Supported channel types
const (
	ChannelTelegram ChannelType = "TELEGRAM"
	ChannelWazzup   ChannelType = "WAZZUP"
)

// Common validation errors for Source
var (
	ErrEmptySourceID         = errors.New("source ID cannot be empty")
	ErrEmptySourceExternalID = errors.New("source external ID cannot be empty")
)

// Source is a conversation the system has seen. Sources are created lazily
// on the first message from a conversation and are never destructively
// overwritten.
type Source struct {
	ID         uuid.UUID   `json:"id"`
	Type       ChannelType `json:"type"`
	ExternalID string      `json:"external_id"`
	Name       *string     `json:"name"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewSource creates a Source for the given channel and external conversation ID.
func NewSource(channel ChannelType, externalID string, name *string) (*Source, error) {
	source := &Source{
		ID:         uuid.New(),
		Type:       channel,
		ExternalID: externalID,
		Name:       name,
		CreatedAt:  time.Now().UTC(),
	}

	if err := source.Validate(); err != nil {
		return nil, err
	}

	return source, nil
}

// Validate checks if the Source has valid data.
func (s *Source) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySourceID
	}

	if s.ExternalID == "" {
		return ErrEmptySourceExternalID
	}

	if !isValidChannelType(s.Type) {
		return ErrInvalidChannelType
	}

	return nil
}

func isValidChannelType(channel ChannelType) bool {
	switch channel {
	case ChannelTelegram, ChannelWazzup:
		return true
	default:
		return false
	}
}
