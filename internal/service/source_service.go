package service

import (
	"context"
	"log/slog"

	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/store"
)

// SourceService covers the administrative surface over message sources.
// The ingestion path resolves sources itself, inside the task creation
// transaction; this service only lists and pre-registers them.
type SourceService struct {
	sources store.SourceStore
	logger  *slog.Logger
}

// NewSourceService creates a new SourceService.
func NewSourceService(sources store.SourceStore, logger *slog.Logger) *SourceService {
	return &SourceService{
		sources: sources,
		logger:  logger.With("component", "source_service"),
	}
}

// ListSources returns all registered sources, newest first.
func (s *SourceService) ListSources(ctx context.Context) ([]*domain.Source, error) {
	return s.sources.List(ctx)
}

// CreateSource registers a conversation ahead of its first message, so an
// operator can name it before the pipeline ever sees it.
func (s *SourceService) CreateSource(ctx context.Context, channel domain.ChannelType, externalID string, name *string) (*domain.Source, error) {
	source, err := domain.NewSource(channel, externalID, name)
	if err != nil {
		return nil, err
	}

	if err := s.sources.Create(ctx, source); err != nil {
		return nil, err
	}

	s.logger.Info("source created",
		"source_id", source.ID,
		"channel", channel,
		"external_id", externalID)

	return source, nil
}
