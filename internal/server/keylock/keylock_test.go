package keylock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// exercise runs n goroutines that each hold the lock briefly and reports how
// many completed and the highest number seen inside at once.
func exercise(t *testing.T, l Locker, key string, n int) (int, int32) {
	t.Helper()

	var inside, maxInside, total int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), key)
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			defer unlock()

			cur := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if cur <= m || atomic.CompareAndSwapInt32(&maxInside, m, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&total, 1)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()
	return int(total), maxInside
}

func TestLocal_MutualExclusion(t *testing.T) {
	l := NewLocal()
	total, maxInside := exercise(t, l, "a@x.com", 20)
	assert.Equal(t, 20, total)
	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, l.size(), "idle keys must be dropped")
}

func TestLocal_DifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	unlockA, err := l.Lock(context.Background(), "a@x.com")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b@x.com")
	require.NoError(t, err)
	unlockB()
}

func TestLocal_ContextCancelled(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "a@x.com")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "a@x.com")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	assert.Equal(t, 0, l.size())
}

func TestRedis_MutualExclusion(t *testing.T) {
	_, client := newTestRedis(t)
	l := NewRedis(client, "test:", time.Second)
	l.retry = time.Millisecond

	total, maxInside := exercise(t, l, "a@x.com", 10)
	assert.Equal(t, 10, total)
	assert.Equal(t, int32(1), maxInside)
}

func TestRedis_UnlockReleasesKey(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedis(client, "test:", time.Second)

	unlock, err := l.Lock(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:a@x.com"))

	unlock()
	assert.False(t, mr.Exists("test:a@x.com"))
}

func TestRedis_StaleUnlockKeepsForeignLock(t *testing.T) {
	mr, client := newTestRedis(t)
	l := NewRedis(client, "test:", time.Second)

	unlock, err := l.Lock(context.Background(), "a@x.com")
	require.NoError(t, err)

	// Our lock expires and another holder takes the key.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("test:a@x.com", "someone-else"))

	unlock()
	got, err := mr.Get("test:a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedis_ContextCancelledWhileWaiting(t *testing.T) {
	_, client := newTestRedis(t)
	l := NewRedis(client, "test:", 10*time.Second)
	l.retry = time.Millisecond

	unlock, err := l.Lock(context.Background(), "a@x.com")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "a@x.com")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedis_ServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	l := NewRedis(client, "test:", time.Second)
	mr.Close()

	_, err = l.Lock(context.Background(), "a@x.com")
	require.Error(t, err)
}

func TestNewRedis_Defaults(t *testing.T) {
	l := NewRedis(nil, "", 0)
	assert.Equal(t, "jazzyauth:lock:", l.prefix)
	assert.Equal(t, 5*time.Second, l.ttl)
}
