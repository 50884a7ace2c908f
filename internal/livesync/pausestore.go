package livesync

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PauseStore persists the pause flag across a session reload.
type PauseStore interface {
	LoadPaused(ctx context.Context) (bool, error)
	SavePaused(ctx context.Context, paused bool) error
}

// RedisPauseStore keeps the flag in a session-scoped Redis key with a TTL, the
// server-side analog of browser session storage.
type RedisPauseStore struct {
	rdb     *redis.Client
	session string
	ttl     time.Duration
}

func NewRedisPauseStore(redisURL, sessionID string) (*RedisPauseStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return &RedisPauseStore{
		rdb:     redis.NewClient(opts),
		session: sessionID,
		ttl:     24 * time.Hour,
	}, nil
}

func (s *RedisPauseStore) key() string {
	return "livesync:paused:" + s.session
}

func (s *RedisPauseStore) LoadPaused(ctx context.Context) (bool, error) {
	val, err := s.rdb.Get(ctx, s.key()).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "1", nil
}

func (s *RedisPauseStore) SavePaused(ctx context.Context, paused bool) error {
	val := "0"
	if paused {
		val = "1"
	}
	return s.rdb.Set(ctx, s.key(), val, s.ttl).Err()
}

// Close closes the Redis client connection
func (s *RedisPauseStore) Close() error {
	return s.rdb.Close()
}

// MemoryPauseStore backs tests and single-process development.
type MemoryPauseStore struct {
	paused bool
}

func NewMemoryPauseStore() *MemoryPauseStore { return &MemoryPauseStore{} }

func (s *MemoryPauseStore) LoadPaused(context.Context) (bool, error) {
	return s.paused, nil
}

func (s *MemoryPauseStore) SavePaused(_ context.Context, paused bool) error {
	s.paused = paused
	return nil
}
