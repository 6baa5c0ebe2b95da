package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/zatekoja/providersync/internal/infrastructure/observability"
)

// Key is a comparable cache key with a canonical string form.
type Key interface {
	comparable
	String() string
}

// Loader computes the value for a key.
type Loader[K Key, V any] func(ctx context.Context, key K) (V, error)

// LoadingCacheConfig configures a LoadingCache.
type LoadingCacheConfig struct {
	Name string
	// ExpireAfterWrite is the age after which an entry is no longer served.
	ExpireAfterWrite time.Duration
	// RefreshAfterWrite is the age after which a hit triggers a background reload.
	RefreshAfterWrite time.Duration
	// LoadTimeout bounds a synchronous load shared by several callers. Zero means no bound.
	LoadTimeout time.Duration
	MaxEntries  int
	Clock       func() time.Time
	Metrics     *observability.SyncMetrics
}

type entry[V any] struct {
	value    V
	loadedAt time.Time
}

// LoadingCache is a read-through cache with refresh-ahead. Cold and expired
// lookups load synchronously and concurrent cold lookups of one key share a
// single load. Stale lookups are served immediately while one background
// reload per key replaces the value. A failed background reload keeps the
// previous value.
type LoadingCache[K Key, V any] struct {
	name    string
	load    Loader[K, V]
	expire  time.Duration
	refresh time.Duration
	now     func() time.Time

	loadTimeout time.Duration
	metrics     *observability.SyncMetrics

	entries    *lru.Cache[K, entry[V]]
	group      singleflight.Group
	refreshing sync.Map

	// mu orders stores against invalidations; epoch lets a store detect that
	// an invalidation happened while its load was in flight.
	mu    sync.Mutex
	epoch atomic.Uint64
}

// NewLoadingCache creates a LoadingCache backed by load.
func NewLoadingCache[K Key, V any](cfg LoadingCacheConfig, load Loader[K, V]) (*LoadingCache[K, V], error) {
	entries, err := lru.New[K, entry[V]](cfg.MaxEntries)
	if err != nil {
		return nil, err
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &LoadingCache[K, V]{
		name:    cfg.Name,
		load:    load,
		expire:  cfg.ExpireAfterWrite,
		refresh: cfg.RefreshAfterWrite,
		now:     clock,

		loadTimeout: cfg.LoadTimeout,
		metrics:     cfg.Metrics,
		entries:     entries,
	}, nil
}

// Get returns the cached value for key, loading it if absent or expired.
func (c *LoadingCache[K, V]) Get(ctx context.Context, key K) (V, error) {
	if e, ok := c.entries.Get(key); ok {
		age := c.now().Sub(e.loadedAt)
		switch {
		case age < c.refresh:
			c.metrics.RecordCacheLookup(ctx, c.name, "hit")
			return e.value, nil
		case age < c.expire:
			c.metrics.RecordCacheLookup(ctx, c.name, "stale")
			c.refreshAsync(ctx, key)
			return e.value, nil
		}
	}

	c.metrics.RecordCacheLookup(ctx, c.name, "miss")
	return c.loadSync(ctx, key)
}

// loadSync shares one load per key between concurrent callers. The load runs
// detached from any single caller so one caller giving up does not fail the
// others; each caller stops waiting when its own ctx is done.
func (c *LoadingCache[K, V]) loadSync(ctx context.Context, key K) (V, error) {
	var zero V
	ch := c.group.DoChan(key.String(), func() (any, error) {
		loadCtx := context.WithoutCancel(ctx)
		if c.loadTimeout > 0 {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithTimeout(loadCtx, c.loadTimeout)
			defer cancel()
		}
		epoch := c.epoch.Load()
		value, err := c.load(loadCtx, key)
		if err != nil {
			return nil, err
		}
		c.store(key, value, epoch)
		return value, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

func (c *LoadingCache[K, V]) refreshAsync(ctx context.Context, key K) {
	if _, inFlight := c.refreshing.LoadOrStore(key, struct{}{}); inFlight {
		return
	}

	refreshCtx := context.WithoutCancel(ctx)
	go func() {
		defer c.refreshing.Delete(key)

		epoch := c.epoch.Load()
		value, err := c.load(refreshCtx, key)
		c.metrics.RecordCacheRefresh(refreshCtx, c.name, err)
		if err != nil {
			observability.LoggerFromContext(refreshCtx).Warn().Err(err).
				Str("cache", c.name).
				Str("key", key.String()).
				Msg("Background refresh failed, keeping previous value")
			return
		}
		c.store(key, value, epoch)
	}()
}

func (c *LoadingCache[K, V]) store(key K, value V, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.epoch.Load() != epoch {
		return
	}
	c.entries.Add(key, entry[V]{value: value, loadedAt: c.now()})
}

// Keys returns the keys of unexpired entries, oldest first.
func (c *LoadingCache[K, V]) Keys() []K {
	now := c.now()
	keys := c.entries.Keys()
	out := make([]K, 0, len(keys))
	for _, k := range keys {
		if e, ok := c.entries.Peek(k); ok && now.Sub(e.loadedAt) < c.expire {
			out = append(out, k)
		}
	}
	return out
}

// RemoveIf removes every key matching pred and returns how many were removed.
func (c *LoadingCache[K, V]) RemoveIf(pred func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch.Add(1)
	removed := 0
	for _, k := range c.entries.Keys() {
		if pred(k) && c.entries.Remove(k) {
			removed++
		}
	}
	return removed
}

// Purge removes every entry.
func (c *LoadingCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch.Add(1)
	c.entries.Purge()
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *LoadingCache[K, V]) Len() int {
	return c.entries.Len()
}
