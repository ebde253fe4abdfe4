package fhevm

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultInstanceCache is shared by every Client that was not given its own
// cache through WithInstanceCache.
var DefaultInstanceCache = NewInstanceCache()

// ClearCache empties DefaultInstanceCache. Clients that are already ready
// keep the engine they hold, and a bootstrap in flight during the clear
// does not repopulate the cache.
func ClearCache() {
	DefaultInstanceCache.Clear()
}

// InstanceCache maps cache keys to engines. Entries are only removed by
// Clear; there is no eviction.
type InstanceCache struct {
	mu      sync.RWMutex
	engines map[string]Engine
	// gen is bumped by Clear.
	gen uint64

	// flights coalesces concurrent bootstraps for the same key.
	flights singleflight.Group
}

// NewInstanceCache returns an empty cache.
func NewInstanceCache() *InstanceCache {
	return &InstanceCache{engines: make(map[string]Engine)}
}

// Get returns the engine stored under key.
func (c *InstanceCache) Get(key string) (Engine, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.engines[key]
	return e, ok
}

// Put stores e under key, replacing any previous entry.
func (c *InstanceCache) Put(key string, e Engine) {
	c.mu.Lock()
	c.engines[key] = e
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *InstanceCache) Clear() {
	c.mu.Lock()
	c.engines = make(map[string]Engine)
	c.gen++
	c.mu.Unlock()
}

// Len returns the number of cached engines.
func (c *InstanceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.engines)
}

// getOrCreate returns the cached engine for key, or runs create once for all
// concurrent callers that missed, storing the result on success. hit reports
// whether the engine came from the cache.
//
// create runs detached from any caller's cancellation; each caller stops
// waiting when its own ctx ends without affecting the others.
func (c *InstanceCache) getOrCreate(ctx context.Context, key string, create func(context.Context) (Engine, error)) (e Engine, hit bool, err error) {
	if e, ok := c.Get(key); ok {
		return e, true, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(key, func() (any, error) {
		c.mu.RLock()
		e, ok := c.engines[key]
		gen := c.gen
		c.mu.RUnlock()
		if ok {
			return e, nil
		}

		e, err := create(flightCtx)
		if err != nil {
			return nil, err
		}
		c.putIfCurrent(key, e, gen)
		return e, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(Engine), false, nil
	case <-ctx.Done():
		return nil, false, initError(ctx.Err())
	}
}

// putIfCurrent stores e unless Clear ran since gen was read.
func (c *InstanceCache) putIfCurrent(key string, e Engine, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.engines[key] = e
}
