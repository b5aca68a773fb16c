package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSessionKey is where the Redis store keeps the current access token
const DefaultSessionKey = "crm:session:current"

// MemorySessionStore keeps the current access token in process memory
type MemorySessionStore struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewMemorySessionStore creates an empty store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{now: time.Now}
}

// Save stores token until ttl elapses. A non-positive ttl never expires.
func (s *MemorySessionStore) Save(_ context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = time.Time{}
	if ttl > 0 {
		s.expiresAt = s.now().Add(ttl)
	}
	return nil
}

// Load returns the stored token, if any
func (s *MemorySessionStore) Load(context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", false, nil
	}
	if !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt) {
		return "", false, nil
	}
	return s.token, true, nil
}

// Clear forgets the stored token
func (s *MemorySessionStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiresAt = time.Time{}
	return nil
}

// RedisSessionStore keeps the current access token in Redis so it survives
// restarts of the process
type RedisSessionStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisSessionStore creates a Redis-backed store
func NewRedisSessionStore(client redis.Cmdable, key string) *RedisSessionStore {
	if key == "" {
		key = DefaultSessionKey
	}
	return &RedisSessionStore{client: client, key: key}
}

// Save stores token with ttl. A non-positive ttl never expires.
func (s *RedisSessionStore) Save(ctx context.Context, token string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.key, token, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Load returns the stored token, if any
func (s *RedisSessionStore) Load(ctx context.Context) (string, bool, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session: %w", err)
	}
	return token, token != "", nil
}

// Clear removes the stored token
func (s *RedisSessionStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
