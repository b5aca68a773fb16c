package cache

import (
	"context"
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTieredSectionCache_ReadThrough(t *testing.T) {
	l1, _ := newTestMemoryCache(t, time.Minute)
	l2, _ := newTestMemoryCache(t, time.Hour)
	c := NewTieredSectionCache(l1, l2, 30*time.Second, nil)
	ctx := context.Background()

	require.NoError(t, l2.Set(ctx, session.SectionPlanning, "shared", 0))

	data, ok, err := c.Get(ctx, session.SectionPlanning)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "shared", data)

	_, inL1, _ := l1.Get(ctx, session.SectionPlanning)
	assert.True(t, inL1, "L2 hit populates L1")

	_, _, _ = c.Get(ctx, session.SectionPlanning)
	_, ok, _ = c.Get(ctx, session.SectionEmail)
	assert.False(t, ok)

	assert.Equal(t, CacheStats{L1Hits: 1, L2Hits: 1, Misses: 1}, c.Stats())
}

func TestTieredSectionCache_SetAndDeleteBothTiers(t *testing.T) {
	l1, _ := newTestMemoryCache(t, time.Minute)
	l2, _ := newTestMemoryCache(t, time.Hour)
	c := NewTieredSectionCache(l1, l2, 30*time.Second, nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, session.SectionReceipts, "r", time.Minute))
	_, ok, _ := l1.Get(ctx, session.SectionReceipts)
	assert.True(t, ok)
	_, ok, _ = l2.Get(ctx, session.SectionReceipts)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, session.SectionReceipts))
	_, ok, _ = l1.Get(ctx, session.SectionReceipts)
	assert.False(t, ok)
	_, ok, _ = l2.Get(ctx, session.SectionReceipts)
	assert.False(t, ok)
}
