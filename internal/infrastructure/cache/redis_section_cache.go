package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crm/backend/internal/application/section"
	"github.com/crm/backend/internal/domain/session"
	"github.com/redis/go-redis/v9"
)

// DefaultSectionKeyPrefix namespaces section entries in Redis
const DefaultSectionKeyPrefix = "crm:section:"

// RedisSectionCache stores section data as JSON in Redis.
// Get returns the stored document as json.RawMessage.
type RedisSectionCache struct {
	client     redis.Cmdable
	keyPrefix  string
	defaultTTL time.Duration
}

// NewRedisSectionCache creates a Redis-backed section cache
func NewRedisSectionCache(client redis.Cmdable, keyPrefix string, defaultTTL time.Duration) *RedisSectionCache {
	if keyPrefix == "" {
		keyPrefix = DefaultSectionKeyPrefix
	}
	return &RedisSectionCache{client: client, keyPrefix: keyPrefix, defaultTTL: defaultTTL}
}

func (c *RedisSectionCache) key(name session.SectionName) string {
	return c.keyPrefix + name.String()
}

// Get reads the section document
func (c *RedisSectionCache) Get(ctx context.Context, name session.SectionName) (any, bool, error) {
	raw, err := c.client.Get(ctx, c.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read section %s from cache: %w", name, err)
	}
	return json.RawMessage(raw), true, nil
}

// Set stores data as JSON
func (c *RedisSectionCache) Set(ctx context.Context, name session.SectionName, data any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode section %s: %w", name, err)
	}
	if err := c.client.Set(ctx, c.key(name), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write section %s to cache: %w", name, err)
	}
	return nil
}

// Delete removes the section document
func (c *RedisSectionCache) Delete(ctx context.Context, name session.SectionName) error {
	if err := c.client.Del(ctx, c.key(name)).Err(); err != nil {
		return fmt.Errorf("failed to delete section %s from cache: %w", name, err)
	}
	return nil
}

var _ section.Cache = (*RedisSectionCache)(nil)
