package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/store"
)

// PostgresSourceStore implements the store.SourceStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSourceStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSourceStore creates a new PostgreSQL implementation of the
// SourceStore interface.
func NewPostgresSourceStore(db store.DBTX, logger *slog.Logger) *PostgresSourceStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSourceStore{
		db:     db,
		logger: logger.With(slog.String("component", "source_store")),
	}
}

// Ensure PostgresSourceStore implements store.SourceStore interface
var _ store.SourceStore = (*PostgresSourceStore)(nil)

// GetOrCreate implements store.SourceStore.GetOrCreate. The insert races
// are resolved by the unique (type, external_id) constraint: ON CONFLICT DO
// NOTHING followed by a select makes concurrent callers converge on one row.
func (s *PostgresSourceStore) GetOrCreate(ctx context.Context, channel domain.ChannelType, externalID string, name *string) (*domain.Source, error) {
	source, err := domain.NewSource(channel, externalID, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	insert := `
		INSERT INTO sources (id, type, external_id, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (type, external_id) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, insert,
		source.ID, source.Type, source.ExternalID, source.Name, source.CreatedAt); err != nil {
		return nil, MapError(err)
	}

	query := `
		SELECT id, type, external_id, name, created_at
		FROM sources
		WHERE type = $1 AND external_id = $2
	`

	existing, err := scanSource(s.db.QueryRowContext(ctx, query, channel, externalID))
	if err != nil {
		return nil, MapError(err)
	}

	// Fill in a missing display name without overwriting an existing one.
	if existing.Name == nil && name != nil {
		update := `UPDATE sources SET name = $1 WHERE id = $2 AND name IS NULL`
		if _, err := s.db.ExecContext(ctx, update, name, existing.ID); err != nil {
			s.logger.Warn("failed to backfill source name",
				"source_id", existing.ID,
				"error", err)
		} else {
			existing.Name = name
		}
	}

	return existing, nil
}

// Create implements store.SourceStore.Create
func (s *PostgresSourceStore) Create(ctx context.Context, source *domain.Source) error {
	if err := source.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO sources (id, type, external_id, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		source.ID, source.Type, source.ExternalID, source.Name, source.CreatedAt)
	if err != nil {
		s.logger.Error("failed to create source",
			"source_id", source.ID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// List implements store.SourceStore.List
func (s *PostgresSourceStore) List(ctx context.Context) ([]*domain.Source, error) {
	query := `
		SELECT id, type, external_id, name, created_at
		FROM sources
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var sources []*domain.Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, MapError(err)
		}
		sources = append(sources, source)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return sources, nil
}

// WithTx implements store.SourceStore.WithTx
func (s *PostgresSourceStore) WithTx(tx *sql.Tx) store.SourceStore {
	return &PostgresSourceStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanSource(row rowScanner) (*domain.Source, error) {
	var source domain.Source
	err := row.Scan(
		&source.ID,
		&source.Type,
		&source.ExternalID,
		&source.Name,
		&source.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSourceNotFound
		}
		return nil, err
	}
	return &source, nil
}
