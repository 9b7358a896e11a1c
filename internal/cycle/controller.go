// Package cycle coordinates view refreshes. A controller owns the single
// published snapshot for one logical view and guarantees that overlapping
// refreshes can never publish stale parameters: every cycle is stamped with a
// monotonically increasing sequence and only the newest-issued cycle may
// publish its result.
package cycle

import (
	"context"
	"sync"
)

// RunFunc executes one full fetch cycle for the given parameters and returns
// the assembled snapshot.
type RunFunc[P, S any] func(ctx context.Context, params P) (S, error)

// NormalizeFunc adjusts incoming parameters against the previously applied
// ones before a cycle starts. Registries use it for the page-reset-on-filter-
// change policy.
type NormalizeFunc[P any] func(prev P, hasPrev bool, next P) P

// Controller serialises snapshot publication for one view.
type Controller[P, S any] struct {
	run       RunFunc[P, S]
	normalize NormalizeFunc[P]

	mu       sync.Mutex
	seq      uint64
	inflight int
	params   P
	hasPrev  bool
	snapshot S
	hasSnap  bool
}

// New builds a controller. normalize may be nil.
func New[P, S any](run RunFunc[P, S], normalize NormalizeFunc[P]) *Controller[P, S] {
	return &Controller[P, S]{run: run, normalize: normalize}
}

// Refresh runs one fetch cycle. The produced snapshot is published only when
// no newer cycle has been issued in the meantime; either way the currently
// published snapshot is returned together with the refreshing flag. The
// returned error reports this cycle's failure even when an older snapshot is
// still on display.
func (c *Controller[P, S]) Refresh(ctx context.Context, params P) (S, bool, error) {
	c.mu.Lock()
	if c.normalize != nil {
		params = c.normalize(c.params, c.hasPrev, params)
	}
	c.params = params
	c.hasPrev = true
	c.seq++
	token := c.seq
	c.inflight++
	c.mu.Unlock()

	snap, err := c.run(ctx, params)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if err == nil && token == c.seq {
		c.snapshot = snap
		c.hasSnap = true
	}
	return c.snapshot, c.inflight > 0, err
}

// Current returns the published snapshot, the refreshing flag, and whether a
// snapshot has been published yet.
func (c *Controller[P, S]) Current() (S, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot, c.inflight > 0, c.hasSnap
}

// Params returns the most recently applied parameters.
func (c *Controller[P, S]) Params() (P, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params, c.hasPrev
}
