package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for User
var ErrEmptyUserID = errors.New("user ID cannot be empty")

// User is a person referenced as a message sender or a task assignee.
// Users are created lazily; identity fields are never overwritten once set,
// only the display name may be refreshed.
type User struct {
	ID               uuid.UUID `json:"id"`
	TelegramID       *string   `json:"telegram_id"`
	TelegramUsername *string   `json:"telegram_username"`
	Name             *string   `json:"name"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewUser creates a User carrying at least one platform identity. A user
// created from a bare handle gets the handle as the initial display name,
// so assignee-only users still render with something readable.
func NewUser(telegramID, telegramUsername, name *string) (*User, error) {
	if isEmpty(name) && !isEmpty(telegramUsername) {
		n := *telegramUsername
		name = &n
	}

	user := &User{
		ID:               uuid.New(),
		TelegramID:       telegramID,
		TelegramUsername: telegramUsername,
		Name:             name,
		CreatedAt:        time.Now().UTC(),
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrEmptyUserID
	}

	if isEmpty(u.TelegramID) && isEmpty(u.TelegramUsername) {
		return ErrMissingIdentity
	}

	return nil
}

func isEmpty(s *string) bool {
	return s == nil || *s == ""
}
