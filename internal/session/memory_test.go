package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/paper-digest/internal/model"
)

func newSession(id string, ttl time.Duration) *model.Session {
	now := time.Now()
	return &model.Session{
		ID:        id,
		User:      model.Identity{ID: "u1", Name: "Ada", Email: "ada@example.com"},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestMemoryStore_SaveGetDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newSession("s1", time.Hour)))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.User.Email)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.True(t, errors.Is(err, ErrNotFound))

	// deleting again is fine
	assert.NoError(t, store.Delete(ctx, "s1"))
}

func TestMemoryStore_ExpiredSessionIsGone(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newSession("old", time.Minute)))

	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err := store.Get(ctx, "old")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 0, store.Len(), "expired session should be dropped on read")
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newSession("short", time.Minute)))
	require.NoError(t, store.Save(ctx, newSession("long", time.Hour)))

	store.now = func() time.Time { return time.Now().Add(10 * time.Minute) }

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, newSession("s1", time.Hour)))

	got, _ := store.Get(ctx, "s1")
	got.User.Name = "mutated"

	again, _ := store.Get(ctx, "s1")
	assert.Equal(t, "Ada", again.User.Name)
}
