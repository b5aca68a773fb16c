package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/crm/backend/internal/application/section"
	"github.com/crm/backend/internal/domain/session"
	"go.uber.org/zap"
)

// TieredSectionCache reads through a local L1 before a shared L2.
// Writes go to both; L1 entries live for l1TTL at most.
type TieredSectionCache struct {
	l1     section.Cache
	l2     section.Cache
	l1TTL  time.Duration
	logger *zap.Logger

	l1Hits atomic.Int64
	l2Hits atomic.Int64
	misses atomic.Int64
}

// CacheStats reports hit counters
type CacheStats struct {
	L1Hits int64
	L2Hits int64
	Misses int64
}

// NewTieredSectionCache combines a local and a shared cache
func NewTieredSectionCache(l1, l2 section.Cache, l1TTL time.Duration, logger *zap.Logger) *TieredSectionCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TieredSectionCache{l1: l1, l2: l2, l1TTL: l1TTL, logger: logger}
}

// Get checks L1, then L2, populating L1 on an L2 hit
func (c *TieredSectionCache) Get(ctx context.Context, name session.SectionName) (any, bool, error) {
	data, ok, err := c.l1.Get(ctx, name)
	if err != nil {
		c.logger.Warn("L1 cache error", zap.String("section", name.String()), zap.Error(err))
	}
	if ok {
		c.l1Hits.Add(1)
		return data, true, nil
	}

	data, ok, err = c.l2.Get(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		c.misses.Add(1)
		return nil, false, nil
	}
	c.l2Hits.Add(1)
	if err := c.l1.Set(ctx, name, data, c.l1TTL); err != nil {
		c.logger.Warn("Failed to populate L1 cache", zap.String("section", name.String()), zap.Error(err))
	}
	return data, true, nil
}

// Set writes L2 first, then L1
func (c *TieredSectionCache) Set(ctx context.Context, name session.SectionName, data any, ttl time.Duration) error {
	if err := c.l2.Set(ctx, name, data, ttl); err != nil {
		return err
	}
	l1TTL := c.l1TTL
	if ttl > 0 && ttl < l1TTL {
		l1TTL = ttl
	}
	if err := c.l1.Set(ctx, name, data, l1TTL); err != nil {
		c.logger.Warn("Failed to set L1 cache", zap.String("section", name.String()), zap.Error(err))
	}
	return nil
}

// Delete removes the entry from both tiers
func (c *TieredSectionCache) Delete(ctx context.Context, name session.SectionName) error {
	if err := c.l2.Delete(ctx, name); err != nil {
		return err
	}
	if err := c.l1.Delete(ctx, name); err != nil {
		c.logger.Warn("Failed to delete from L1 cache", zap.String("section", name.String()), zap.Error(err))
	}
	return nil
}

// Stats returns the hit counters
func (c *TieredSectionCache) Stats() CacheStats {
	return CacheStats{
		L1Hits: c.l1Hits.Load(),
		L2Hits: c.l2Hits.Load(),
		Misses: c.misses.Load(),
	}
}

var _ section.Cache = (*TieredSectionCache)(nil)
