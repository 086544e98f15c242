package distributed

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_AcquireAndRelease(t *testing.T) {
	_, client := newTestClient(t)
	locker := NewLocker(client, "test:lock:")
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, "s1")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "s1")
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	require.NoError(t, lock.Release(ctx))
	assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)

	again, err := locker.Acquire(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocker_ExpiredLockCannotBeReleased(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewLocker(client, "test:lock:")
	ctx := context.Background()

	lock, err := locker.Acquire(ctx, "s1")
	require.NoError(t, err)

	mr.FastForward(10 * time.Second)

	other, err := locker.Acquire(ctx, "s1")
	require.NoError(t, err)

	assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)
	assert.ErrorIs(t, lock.Extend(ctx, time.Second), ErrLockNotHeld)
	assert.NoError(t, other.Extend(ctx, time.Minute))
	assert.NoError(t, other.Release(ctx))
}

func TestLocker_WithLockSerializes(t *testing.T) {
	_, client := newTestClient(t)
	locker := NewLocker(client, "test:lock:")

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(context.Background(), "shared", func() error {
				n := inside.Add(1)
				if n > maxInside.Load() {
					maxInside.Store(n)
				}
				time.Sleep(5 * time.Millisecond)
				inside.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
}
