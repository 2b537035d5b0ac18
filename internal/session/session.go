// Package session stores server-side login sessions keyed by session ID.
//
// Two backends:
//   - MemoryStore: a mutex-guarded map, lost on restart, single instance only
//   - RedisStore:  shared across instances, expiry enforced by Redis TTL
package session

import (
	"context"
	"errors"

	"github.com/sakif/paper-digest/internal/model"
)

// ErrNotFound is returned by Get for unknown, deleted or expired sessions.
var ErrNotFound = errors.New("session: not found")

// Store persists sessions until they expire or are deleted.
type Store interface {
	Save(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	// Delete removes the session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}
