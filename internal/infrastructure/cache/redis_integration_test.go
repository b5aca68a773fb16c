//go:build integration

package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/session"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisSectionCache(t *testing.T) {
	client := newTestRedis(t)
	c := NewRedisSectionCache(client, "", time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, session.SectionQuotes)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, session.SectionQuotes, map[string]int{"open": 3}, 0))
	data, ok, err := c.Get(ctx, session.SectionQuotes)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"open":3}`, string(data.(json.RawMessage)))

	ttl, err := client.TTL(ctx, DefaultSectionKeyPrefix+"quotes").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Delete(ctx, session.SectionQuotes))
	_, ok, err = c.Get(ctx, session.SectionQuotes)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisSessionStore(t *testing.T) {
	client := newTestRedis(t)
	s := NewRedisSessionStore(client, "")
	ctx := context.Background()

	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, "token", time.Minute))
	token, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "token", token)

	require.NoError(t, s.Clear(ctx))
	_, ok, err = s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
