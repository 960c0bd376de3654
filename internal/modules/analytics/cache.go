package analytics

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Entry is one cached result.
type Entry[V any] struct {
	Fingerprint string
	ComputedAt  time.Time
	Result      V
}

// CacheStats is a point-in-time view of the cache counters.
type CacheStats struct {
	Entries       int     `json:"entries"`
	Capacity      int     `json:"capacity"`
	StalenessSecs float64 `json:"staleness_seconds"`
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	Recomputes    uint64  `json:"recomputes"`
	Invalidations uint64  `json:"invalidations"`
}

// Cache memoizes results by content fingerprint.
//
// Entries are evicted least-recently-used once capacity is reached and expire
// after the staleness window even when their fingerprint is still requested.
// Concurrent misses on one fingerprint share a single computation.
type Cache[V any] struct {
	entries   *expirable.LRU[string, Entry[V]]
	flight    singleflight.Group
	capacity  int
	staleness time.Duration
	log       zerolog.Logger

	hits          atomic.Uint64
	misses        atomic.Uint64
	recomputes    atomic.Uint64
	invalidations atomic.Uint64
}

// NewCache creates a cache holding up to size entries for at most staleness.
func NewCache[V any](size int, staleness time.Duration, log zerolog.Logger) *Cache[V] {
	if size <= 0 {
		size = 256
	}
	if staleness <= 0 {
		staleness = time.Minute
	}
	return &Cache[V]{
		entries:   expirable.NewLRU[string, Entry[V]](size, nil, staleness),
		capacity:  size,
		staleness: staleness,
		log:       log.With().Str("component", "analytics_cache").Logger(),
	}
}

// GetOrCompute returns the cached result for fingerprint or runs compute.
//
// Errors are never cached. compute runs detached from the caller's cancellation
// so the other callers waiting on the same fingerprint still get the result;
// a cancelled caller returns ctx.Err() immediately.
func (c *Cache[V]) GetOrCompute(ctx context.Context, fingerprint string, compute func(ctx context.Context) (V, error)) (V, error) {
	if e, ok := c.entries.Get(fingerprint); ok {
		c.hits.Add(1)
		c.log.Debug().Str("fingerprint", short(fingerprint)).Msg("Cache hit")
		return e.Result, nil
	}
	c.misses.Add(1)

	ch := c.flight.DoChan(fingerprint, func() (interface{}, error) {
		if e, ok := c.entries.Get(fingerprint); ok {
			return e.Result, nil
		}

		c.recomputes.Add(1)
		v, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		c.entries.Add(fingerprint, Entry[V]{Fingerprint: fingerprint, ComputedAt: time.Now(), Result: v})
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

// Peek returns the cached entry without touching recency or counters.
func (c *Cache[V]) Peek(fingerprint string) (Entry[V], bool) {
	return c.entries.Peek(fingerprint)
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.entries.Purge()
	c.invalidations.Add(1)
}

// Recomputes returns how many computations have run.
func (c *Cache[V]) Recomputes() uint64 {
	return c.recomputes.Load()
}

// Stats returns the cache counters.
func (c *Cache[V]) Stats() CacheStats {
	return CacheStats{
		Entries:       c.entries.Len(),
		Capacity:      c.capacity,
		StalenessSecs: c.staleness.Seconds(),
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Recomputes:    c.recomputes.Load(),
		Invalidations: c.invalidations.Load(),
	}
}

func short(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
}
