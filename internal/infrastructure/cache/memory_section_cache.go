package cache

import (
	"context"
	"sync"
	"time"

	"github.com/crm/backend/internal/application/section"
	"github.com/crm/backend/internal/domain/session"
)

type memoryEntry struct {
	data      any
	expiresAt time.Time
}

// MemorySectionCache keeps section data in process memory.
// Expired entries are dropped on read and by a background sweep.
type MemorySectionCache struct {
	mu         sync.RWMutex
	entries    map[session.SectionName]memoryEntry
	defaultTTL time.Duration
	now        func() time.Time

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemorySectionCache creates the cache and starts its sweeper
func NewMemorySectionCache(defaultTTL time.Duration) *MemorySectionCache {
	c := &MemorySectionCache{
		entries:    make(map[session.SectionName]memoryEntry),
		defaultTTL: defaultTTL,
		now:        time.Now,
		stopChan:   make(chan struct{}),
	}
	c.wg.Add(1)
	go c.sweepLoop(time.Minute)
	return c
}

// Get returns live cached data for the section
func (c *MemorySectionCache) Get(_ context.Context, name session.SectionName) (any, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[name]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.data, true, nil
}

// Set stores data until ttl elapses. A non-positive ttl uses the default.
func (c *MemorySectionCache) Set(_ context.Context, name session.SectionName, data any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = memoryEntry{data: data, expiresAt: c.now().Add(ttl)}
	return nil
}

// Delete drops the section's entry
func (c *MemorySectionCache) Delete(_ context.Context, name session.SectionName) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
	return nil
}

// Clear drops every entry
func (c *MemorySectionCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[session.SectionName]memoryEntry)
	return nil
}

// Size returns the number of stored entries, expired ones included
func (c *MemorySectionCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the sweeper. Safe to call more than once.
func (c *MemorySectionCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *MemorySectionCache) sweepLoop(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *MemorySectionCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for name, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, name)
		}
	}
}

var _ section.Cache = (*MemorySectionCache)(nil)
