package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/crm/backend/internal/application/section"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend names accepted by NewStores
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// l1TTL bounds how long a process serves section data without asking Redis
const l1TTL = 30 * time.Second

// SessionStore persists the access token of the current session
type SessionStore interface {
	Save(ctx context.Context, token string, ttl time.Duration) error
	Load(ctx context.Context) (string, bool, error)
	Clear(ctx context.Context) error
}

// Stores groups the caches built for one backend
type Stores struct {
	Sections section.Cache
	Sessions SessionStore
	closers  []func() error
}

// Close releases background resources held by the stores
func (s *Stores) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewStores builds the section cache and session store for backend.
// The redis backend needs a client; the memory backend ignores it.
func NewStores(backend string, client *redis.Client, sectionTTL time.Duration, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch backend {
	case "", BackendMemory:
		mem := NewMemorySectionCache(sectionTTL)
		logger.Info("Using in-memory session and section caches")
		return &Stores{
			Sections: mem,
			Sessions: NewMemorySessionStore(),
			closers:  []func() error{mem.Close},
		}, nil

	case BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis cache backend requires a Redis client")
		}
		l1 := NewMemorySectionCache(l1TTL)
		l2 := NewRedisSectionCache(client, DefaultSectionKeyPrefix, sectionTTL)
		logger.Info("Using Redis session and section caches")
		return &Stores{
			Sections: NewTieredSectionCache(l1, l2, l1TTL, logger),
			Sessions: NewRedisSessionStore(client, DefaultSessionKey),
			closers:  []func() error{l1.Close},
		}, nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
