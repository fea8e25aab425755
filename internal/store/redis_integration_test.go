//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStoreAgainstRealServer(t *testing.T) {
	s := NewRedisStore(startRedis(t), time.Second)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.SetAdd(ctx, "user_sessions:a@x.com", "t1", time.Hour))

	ttl, err := s.TTL(ctx, "user_sessions:a@x.com")
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	ttl, err = s.TTL(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, KeyMissing, ttl)

	n, err := s.Increment(ctx, "rate_limit:login:a@x.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
