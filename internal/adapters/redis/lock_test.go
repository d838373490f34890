package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/switchboard/internal/adapters/redis"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunLockerContract(t, redis.NewLocker(client, "test:"))
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "5551234567", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:5551234567"), "Lock key should be set in Redis")
	assert.Equal(t, 5*time.Second, mr.TTL("test:lock:5551234567"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:5551234567"), "Lock key should be removed after unlock")
}

func TestRedisLocker_UnlockKeepsForeignLock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)

	// The lock expired and another replica took it.
	require.NoError(t, mr.Set("test:lock:k", "someone-else"))
	require.NoError(t, unlock(ctx))

	got, err := mr.Get("test:lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
