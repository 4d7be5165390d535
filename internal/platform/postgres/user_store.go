package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/store"
)

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the
// UserStore interface.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, telegram_id, telegram_username, name, created_at
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, MapError(err)
	}

	return user, nil
}

// GetOrCreateByUsername implements store.UserStore.GetOrCreateByUsername.
// Concurrent callers racing on the same handle converge through the unique
// index, same pattern as source resolution.
func (s *PostgresUserStore) GetOrCreateByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := domain.NewUser(nil, &username, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	insert := `
		INSERT INTO users (id, telegram_id, telegram_username, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (telegram_username) WHERE telegram_username IS NOT NULL DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, insert,
		user.ID, user.TelegramID, user.TelegramUsername, user.Name, user.CreatedAt); err != nil {
		return nil, MapError(err)
	}

	query := `
		SELECT id, telegram_id, telegram_username, name, created_at
		FROM users
		WHERE telegram_username = $1
	`

	existing, err := scanUser(s.db.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, MapError(err)
	}

	return existing, nil
}

// UpsertSender implements store.UserStore.UpsertSender. The platform ID is
// the preferred identity; the handle is the fallback for senders whose ID
// the platform does not expose. Identity fields are never overwritten, only
// the display name is refreshed.
func (s *PostgresUserStore) UpsertSender(ctx context.Context, telegramID, telegramUsername, name *string) (*domain.User, error) {
	existing, err := s.findByIdentity(ctx, telegramID, telegramUsername)
	if err != nil && !errors.Is(err, store.ErrUserNotFound) {
		return nil, err
	}

	if existing != nil {
		if name != nil && *name != "" {
			update := `UPDATE users SET name = $1 WHERE id = $2`
			if _, err := s.db.ExecContext(ctx, update, name, existing.ID); err != nil {
				s.logger.Warn("failed to refresh user name",
					"user_id", existing.ID,
					"error", err)
			} else {
				existing.Name = name
			}
		}
		return existing, nil
	}

	user, err := domain.NewUser(telegramID, telegramUsername, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	insert := `
		INSERT INTO users (id, telegram_id, telegram_username, name, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := s.db.ExecContext(ctx, insert,
		user.ID, user.TelegramID, user.TelegramUsername, user.Name, user.CreatedAt); err != nil {
		// A concurrent upsert beat this one; converge on the winner's row.
		if IsUniqueViolation(err) {
			return s.findByIdentity(ctx, telegramID, telegramUsername)
		}
		return nil, MapError(err)
	}

	return user, nil
}

// WithTx implements store.UserStore.WithTx
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{
		db:     tx,
		logger: s.logger,
	}
}

// findByIdentity looks a user up by platform ID, then by handle.
func (s *PostgresUserStore) findByIdentity(ctx context.Context, telegramID, telegramUsername *string) (*domain.User, error) {
	if telegramID != nil {
		query := `
			SELECT id, telegram_id, telegram_username, name, created_at
			FROM users
			WHERE telegram_id = $1
		`
		user, err := scanUser(s.db.QueryRowContext(ctx, query, *telegramID))
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, MapError(err)
		}
	}

	if telegramUsername != nil {
		query := `
			SELECT id, telegram_id, telegram_username, name, created_at
			FROM users
			WHERE telegram_username = $1
		`
		user, err := scanUser(s.db.QueryRowContext(ctx, query, *telegramUsername))
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, MapError(err)
		}
	}

	return nil, store.ErrUserNotFound
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.TelegramUsername,
		&user.Name,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
