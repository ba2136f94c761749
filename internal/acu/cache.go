package acu

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DepotCache hands out one shared, fully-built Depots collection,
// computing it at most once. Concurrent first callers coalesce into a
// single underlying command; all of them observe the same completed
// collection. Construct one per process and share it.
type DepotCache struct {
	runner Runner
	logger Logger

	flight singleflight.Group
	mu     sync.Mutex
	depots *Depots
}

func NewDepotCache(runner Runner, logger Logger) *DepotCache {
	return &DepotCache{runner: runner, logger: logger}
}

// Get returns the cached depot collection, building it on first use.
// A failed build is not cached; the next caller retries.
func (c *DepotCache) Get(ctx context.Context) (*Depots, error) {
	c.mu.Lock()
	if c.depots != nil {
		depots := c.depots
		c.mu.Unlock()
		return depots, nil
	}
	c.mu.Unlock()

	v, err, _ := c.flight.Do("depots", func() (any, error) {
		depots := NewDepots(c.runner, c.logger)
		if err := depots.Build(ctx); err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.depots = depots
		c.mu.Unlock()
		return depots, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Depots), nil
}
