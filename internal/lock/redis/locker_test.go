package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"solana-token-selector/internal/job"
)

func setupRedis(t *testing.T) *Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := New(ctx, ClientConfig{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLocker_ExclusiveUntilReleased(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx))
	a := NewLocker(client, "")
	b := NewLocker(client, "")

	unlock, err := a.Acquire(ctx, "job:selection", time.Minute)
	require.NoError(t, err)

	_, err = b.Acquire(ctx, "job:selection", time.Minute)
	assert.ErrorIs(t, err, job.ErrLockHeld)

	// Different key is independent.
	unlockOther, err := b.Acquire(ctx, "job:refresh", time.Minute)
	require.NoError(t, err)
	unlockOther()

	unlock()
	unlock()

	unlockB, err := b.Acquire(ctx, "job:selection", time.Minute)
	require.NoError(t, err)
	unlockB()
}

func TestLocker_ExpiredLockNotReleasedByOldHolder(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	l := NewLocker(client, "test:")

	stale, err := l.Acquire(ctx, "job:selection", 100*time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, err := client.rdb.Exists(ctx, "test:job:selection").Result()
		return err == nil && n == 0
	}, 5*time.Second, 50*time.Millisecond)

	fresh, err := l.Acquire(ctx, "job:selection", time.Minute)
	require.NoError(t, err)
	defer fresh()

	stale()

	_, err = l.Acquire(ctx, "job:selection", time.Minute)
	assert.ErrorIs(t, err, job.ErrLockHeld)
}

func TestNew_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, ClientConfig{Addr: "127.0.0.1:1", MaxRetries: -1})
	assert.Error(t, err)
}
