package limiter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateBoundsConcurrency(t *testing.T) {
	g := New(2, 100000)

	var inFlight, maxSeen atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := g.Acquire(context.Background())
			require.NoError(t, err)
			defer release()

			n := inFlight.Add(1)
			for {
				old := maxSeen.Load()
				if n <= old || maxSeen.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxSeen.Load(), int32(2))
}

func TestGateRespectsContextCancellation(t *testing.T) {
	g := New(1, 100000)

	release, err := g.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = g.Acquire(ctx)
	require.Error(t, err)
}

func TestUnlimitedNeverBlocks(t *testing.T) {
	g := Unlimited()

	for i := 0; i < 100; i++ {
		release, err := g.Acquire(context.Background())
		require.NoError(t, err)
		release()
	}
}

func TestGateReleasesSlotOnRateLimitCancel(t *testing.T) {
	// One call per minute with burst 1: the second acquire must block on
	// the rate limiter while holding a slot, then give the slot back.
	g := New(1, 1)

	release, err := g.Acquire(context.Background())
	require.NoError(t, err)
	release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Acquire(ctx)
	require.Error(t, err)

	// The slot must be free again for a later caller.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	require.NoError(t, g.slots.Acquire(ctx2, 1))
	g.slots.Release(1)
}
