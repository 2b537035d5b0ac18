// Package repository declares the storage contracts the services depend on.
//
// Concrete backends live in sub-packages (memory, sqlite, postgres, mysql)
// and are selected at startup. Every backend:
//   - stores emails exactly as given (the service normalizes them first)
//   - returns apperror.ErrConflict for a duplicate email
//   - returns apperror.ErrNotFound when a lookup misses
package repository

import (
	"context"

	"github.com/sakif/paper-digest/internal/model"
)

// UserRepository is the credential store.
type UserRepository interface {
	// CreateUser inserts user, assigning ID and CreatedAt in place.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)

	// Ping reports whether the backend is reachable. Used by /health.
	Ping(ctx context.Context) error
	Close() error
}
