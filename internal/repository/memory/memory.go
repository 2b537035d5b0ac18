// Package memory implements repository.UserRepository with in-process maps.
// Data is lost on restart; use it for tests and throwaway deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/paper-digest/internal/apperror"
	"github.com/sakif/paper-digest/internal/model"
	"github.com/sakif/paper-digest/internal/repository"
)

var _ repository.UserRepository = (*UserStore)(nil)

// UserStore guards two indexes with one RWMutex: reads run concurrently,
// writes are serialized.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]*model.User
	byEmail map[string]*model.User
}

func New() *UserStore {
	return &UserStore{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]*model.User),
	}
}

func (s *UserStore) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return apperror.Conflict("email already registered")
	}

	user.ID = xid.New().String()
	user.CreatedAt = time.Now().UTC()

	stored := *user
	s.byID[stored.ID] = &stored
	s.byEmail[stored.Email] = &stored
	return nil
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	out := *u
	return &out, nil
}

func (s *UserStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	out := *u
	return &out, nil
}

func (s *UserStore) Ping(ctx context.Context) error { return nil }

func (s *UserStore) Close() error { return nil }
