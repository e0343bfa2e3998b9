package users

import (
	"context"
	"fmt"
	"time"

	"github.com/mayondo/mwf/internal/shared"
)

// ConstraintUsername guards unique login names.
const ConstraintUsername = "users_username_key"

// ErrUserNotFound is returned for unknown user ids.
var ErrUserNotFound = fmt.Errorf("user %w", shared.ErrNotFound)

// NewUserMessage is broadcast to managers whenever an account is created.
const NewUserMessage = "A new user was added to the system."

// User represents a user account for management.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	IsActive  bool      `json:"is_active"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput carries a new account submitted by a manager.
type CreateInput struct {
	Username string
	Email    string
	Password string
	Role     string
	ActorID  int64
}

// TxRepository exposes the writes performed while creating an account.
type TxRepository interface {
	InsertUser(ctx context.Context, user User, passwordHash string) (User, error)
	AssignRole(ctx context.Context, userID int64, role string) error
	NotifyManagers(ctx context.Context, message string) error
}
