package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lysyi3m/board-feeds/app/metrics"
)

const (
	DefaultTTL           = 60 * time.Second
	DefaultSweepInterval = 120 * time.Second
)

// Value is either a rendered document or the absent marker recorded when a
// document could not be produced.
type Value struct {
	Document string
	Absent   bool
}

func Document(doc string) Value {
	return Value{Document: doc}
}

var AbsentValue = Value{Absent: true}

type entry struct {
	value     Value
	expiresAt time.Time
}

// FillFunc produces the document for a missed key. An error is stored as
// the absent marker.
type FillFunc func(ctx context.Context) (string, error)

type Cache struct {
	entries     map[string]entry
	mu          sync.RWMutex
	group       singleflight.Group
	ttl         time.Duration
	negativeTTL time.Duration
	now         func() time.Time

	sweepInterval time.Duration
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithNegativeTTL sets how long an absent marker is kept. Zero disables
// caching of failures.
func WithNegativeTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.negativeTTL = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithSweepInterval(interval time.Duration) Option {
	return func(c *Cache) { c.sweepInterval = interval }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries:       make(map[string]entry),
		ttl:           DefaultTTL,
		negativeTTL:   DefaultTTL,
		now:           time.Now,
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live value for key. Expired entries are reported as misses
// even before the sweeper removes them.
func (c *Cache) Get(key string) (Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return Value{}, false
	}
	return e.value, true
}

func (c *Cache) Set(key string, value Value, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len counts stored entries, including expired ones not yet swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Fetch serves key from the cache, filling it on a miss. Concurrent misses
// for the same key share a single fill.
func (c *Cache) Fetch(ctx context.Context, key string, fill FillFunc) Value {
	if value, ok := c.Get(key); ok {
		c.observeHit(value)
		return value
	}

	result, _, shared := c.group.Do(key, func() (any, error) {
		if value, ok := c.Get(key); ok {
			return value, nil
		}

		metrics.ObserveLookup(metrics.LookupMiss)
		slog.Debug("Cache miss", "key", key)

		// The fill outlives the request that triggered it so coalesced
		// callers are not cut off when the first caller goes away.
		doc, err := fill(context.WithoutCancel(ctx))
		if err != nil {
			slog.Warn("Cache fill failed, storing absent marker", "key", key, "ttl", c.negativeTTL, "error", err)
			c.Set(key, AbsentValue, c.negativeTTL)
			metrics.ObserveFill(true)
			return AbsentValue, nil
		}

		value := Document(doc)
		c.Set(key, value, c.ttl)
		metrics.ObserveFill(false)
		return value, nil
	})

	if shared {
		slog.Debug("Cache fill shared", "key", key)
	}

	return result.(Value)
}

// Sweep removes expired entries and returns how many were dropped.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *Cache) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := c.Sweep(); removed > 0 {
					metrics.ObserveSweep(removed)
					slog.Debug("Expired cache entries swept", "removed", removed, "remaining", c.Len())
				}
			}
		}
	}()
}

func (c *Cache) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.wg.Wait()
	c.cancel = nil
}

func (c *Cache) observeHit(value Value) {
	if value.Absent {
		metrics.ObserveLookup(metrics.LookupAbsent)
		return
	}
	metrics.ObserveLookup(metrics.LookupHit)
}
