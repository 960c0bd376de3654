package analytics

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	n int
}

func counting(calls *atomic.Int32, delay time.Duration) func(context.Context) (*result, error) {
	return func(ctx context.Context) (*result, error) {
		n := calls.Add(1)
		time.Sleep(delay)
		return &result{n: int(n)}, nil
	}
}

func TestCache_HitReturnsSameResult(t *testing.T) {
	c := NewCache[*result](8, time.Minute, zerolog.Nop())
	var calls atomic.Int32

	first, err := c.GetOrCompute(context.Background(), "fp", counting(&calls, 0))
	require.NoError(t, err)
	second, err := c.GetOrCompute(context.Background(), "fp", counting(&calls, 0))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, uint64(1), c.Recomputes())

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestCache_SingleFlight(t *testing.T) {
	c := NewCache[*result](8, time.Minute, zerolog.Nop())
	var calls atomic.Int32

	var wg sync.WaitGroup
	results := make([]*result, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := c.GetOrCompute(context.Background(), "cold", counting(&calls, 50*time.Millisecond))
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(1), c.Recomputes())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestCache_DistinctFingerprintsComputeIndependently(t *testing.T) {
	c := NewCache[*result](8, time.Minute, zerolog.Nop())
	var calls atomic.Int32

	a, err := c.GetOrCompute(context.Background(), "a", counting(&calls, 0))
	require.NoError(t, err)
	b, err := c.GetOrCompute(context.Background(), "b", counting(&calls, 0))
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, uint64(2), c.Recomputes())
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	c := NewCache[*result](8, time.Minute, zerolog.Nop())
	boom := errors.New("boom")

	_, err := c.GetOrCompute(context.Background(), "fp", func(context.Context) (*result, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	var calls atomic.Int32
	r, err := c.GetOrCompute(context.Background(), "fp", counting(&calls, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, r.n)
	assert.Equal(t, uint64(2), c.Recomputes())
}

func TestCache_StalenessWindowForcesRecompute(t *testing.T) {
	c := NewCache[*result](8, 30*time.Millisecond, zerolog.Nop())
	var calls atomic.Int32

	_, err := c.GetOrCompute(context.Background(), "fp", counting(&calls, 0))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, ok := c.Peek("fp")
		return !ok
	}, time.Second, 10*time.Millisecond)

	r, err := c.GetOrCompute(context.Background(), "fp", counting(&calls, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, r.n)
}

func TestCache_LeastRecentlyUsedEviction(t *testing.T) {
	c := NewCache[*result](2, time.Minute, zerolog.Nop())
	var calls atomic.Int32
	ctx := context.Background()

	for _, fp := range []string{"a", "b", "a", "c"} {
		_, err := c.GetOrCompute(ctx, fp, counting(&calls, 0))
		require.NoError(t, err)
	}

	_, ok := c.Peek("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Peek("a")
	assert.True(t, ok)
	assert.Equal(t, uint64(3), c.Recomputes())
}

func TestCache_Purge(t *testing.T) {
	c := NewCache[*result](8, time.Minute, zerolog.Nop())
	var calls atomic.Int32

	_, err := c.GetOrCompute(context.Background(), "fp", counting(&calls, 0))
	require.NoError(t, err)
	c.Purge()

	_, ok := c.Peek("fp")
	assert.False(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Invalidations)

	_, err = c.GetOrCompute(context.Background(), "fp", counting(&calls, 0))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), c.Recomputes())
}

func TestCache_CancelledCallerLeavesComputationRunning(t *testing.T) {
	c := NewCache[*result](8, time.Minute, zerolog.Nop())
	var calls atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := c.GetOrCompute(ctx, "fp", counting(&calls, 100*time.Millisecond))
	assert.ErrorIs(t, err, context.Canceled)

	assert.Eventually(t, func() bool {
		_, ok := c.Peek("fp")
		return ok
	}, time.Second, 10*time.Millisecond)

	r, err := c.GetOrCompute(context.Background(), "fp", counting(&calls, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, r.n)
}
