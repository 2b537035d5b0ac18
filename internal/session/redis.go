package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/paper-digest/internal/model"
)

var _ Store = (*RedisStore)(nil)

const keyPrefix = "session:"

// RedisConfig addresses the Redis server.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore keeps each session as a JSON value under "session:<id>" with a
// TTL equal to the session's remaining lifetime.
type RedisStore struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewRedisStore(cfg RedisConfig, logger *slog.Logger) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{rdb: rdb, logger: logger}
}

func (r *RedisStore) Save(ctx context.Context, s *model.Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session: refusing to save expired session %s", s.ID)
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encoding: %w", err)
	}

	if err := r.rdb.Set(ctx, keyPrefix+s.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("session: redis SET: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*model.Session, error) {
	b, err := r.rdb.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis GET: %w", err)
	}

	var s model.Session
	if err := json.Unmarshal(b, &s); err != nil {
		r.logger.Warn("discarding undecodable session",
			slog.String("sessionID", id),
			slog.String("error", err.Error()),
		)
		return nil, ErrNotFound
	}

	// Redis TTL has second granularity; the stored expiry is authoritative.
	if s.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("session: redis DEL: %w", err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
