package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type memCounter struct {
	hits map[string]int64
	err  error
}

func (m *memCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.hits[key]++
	return m.hits[key], nil
}

func TestAllowFixedWindow(t *testing.T) {
	counter := &memCounter{hits: map[string]int64{}}
	l := New(counter, 2, time.Minute)
	now := time.Date(2024, 5, 1, 12, 0, 10, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	d, err := l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.EqualValues(t, 1, d.Remaining)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 1, 0, 0, time.UTC), d.ResetAt)

	d, err = l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Zero(t, d.Remaining)

	d, err = l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.EqualValues(t, 3, d.Count)

	d, err = l.Allow(ctx, "user:2")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "keys are independent")

	now = now.Add(time.Minute)
	d, err = l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "a new window starts fresh")
}

func TestAllowDisabledAndErrors(t *testing.T) {
	var nilLimiter *Limiter
	d, err := nilLimiter.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	l := New(&memCounter{err: errors.New("connection refused")}, 1, time.Minute)
	_, err = l.Allow(context.Background(), "k")
	assert.Error(t, err)
}

func TestRedisCounterIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	addr, err := ctr.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	counter := NewRedisCounter(addr)
	defer counter.Close()
	require.NoError(t, counter.Ping(ctx))

	l := New(counter, 1, time.Minute)
	d, err := l.Allow(ctx, "it")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	d, err = l.Allow(ctx, "it")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	ttl, err := counter.R.TTL(ctx, bucketKey("it", l.now().Truncate(l.window))).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
