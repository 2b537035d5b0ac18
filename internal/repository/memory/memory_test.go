package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/paper-digest/internal/apperror"
	"github.com/sakif/paper-digest/internal/model"
)

func TestCreateUser_AssignsIDAndTimestamp(t *testing.T) {
	s := New()
	u := &model.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "h"}

	require.NoError(t, s.CreateUser(context.Background(), u))
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, &model.User{Email: "dup@example.com"}))

	err := s.CreateUser(ctx, &model.User{Email: "dup@example.com"})
	assert.True(t, errors.Is(err, apperror.ErrConflict), "want ErrConflict, got %v", err)
}

func TestGetUser_ByEmailAndID(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := &model.User{Name: "Grace", Email: "grace@example.com", PasswordHash: "h"}
	require.NoError(t, s.CreateUser(ctx, u))

	byEmail, err := s.GetUserByEmail(ctx, "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace", byID.Name)
	assert.Equal(t, "h", byID.PasswordHash)
}

func TestGetUser_NotFound(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.GetUserByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	_, err = s.GetUserByID(ctx, "missing")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestGetUser_ReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := &model.User{Name: "Linus", Email: "linus@example.com"}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	got.Name = "changed"

	again, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Linus", again.Name)
}

func TestCreateUser_ConcurrentSameEmail(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.CreateUser(ctx, &model.User{Name: fmt.Sprintf("u%d", i), Email: "race@example.com"})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}
