package database

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/akozyrev/taskman/internal/model"
)

// DefaultTimeout is the default length of time to wait
// for a database operation to complete.
const DefaultTimeout = time.Second * 3

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateUsername is returned when a write would violate the
	// uniqueness constraint on usernames.
	ErrDuplicateUsername = errors.New("username already taken")
)

// UserStore handles interactions with the user database.
type UserStore interface {
	// CreateUser persists a new user, assigning CreatedAt. It fails
	// with ErrDuplicateUsername if the username is already taken.
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// ListUsers returns all users ordered by creation time.
	ListUsers(ctx context.Context) ([]*model.User, error)
	// UpdateUser rewrites the user record. It fails with
	// ErrDuplicateUsername if the new username belongs to another user.
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id string) error
}

// SessionStore handles interactions with the session database,
// which may or may not be the same backend as the user database.
type SessionStore interface {
	PutSession(ctx context.Context, sess *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Store handles all interactions with the data backend.
type Store interface {
	UserStore
	SessionStore
	Close() error
}
