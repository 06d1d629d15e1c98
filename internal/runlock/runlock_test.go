package runlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var slot = time.Date(2026, 8, 5, 13, 30, 0, 0, time.UTC)

func TestLocalLocker(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, slot)
	require.NoError(t, err)
	require.True(t, ok)

	// Same slot is held; a different slot is independent.
	_, ok, err = l.Acquire(ctx, slot)
	require.NoError(t, err)
	assert.False(t, ok)

	other, ok, err := l.Acquire(ctx, slot.Add(24*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
	other()

	release()
	release2, ok, err := l.Acquire(ctx, slot)
	require.NoError(t, err)
	assert.True(t, ok, "released slot must be acquirable again")
	release2()
}

func TestRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewRedisLocker(client, time.Minute)
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, slot)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, slot)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire for the held slot must fail")

	release()
	release2, ok, err := l.Acquire(ctx, slot)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestRedisLockerTTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewRedisLocker(client, time.Minute)
	ctx := context.Background()

	staleRelease, ok, err := l.Acquire(ctx, slot)
	require.NoError(t, err)
	require.True(t, ok)

	// Simulate a crashed holder: the TTL elapses and the lock falls free.
	mr.FastForward(2 * time.Minute)

	release, ok, err := l.Acquire(ctx, slot)
	require.NoError(t, err)
	require.True(t, ok, "expired lock must be acquirable")

	// The stale holder's release must not free the new owner's lock.
	staleRelease()
	_, ok, err = l.Acquire(ctx, slot)
	require.NoError(t, err)
	assert.False(t, ok)
	release()
}
