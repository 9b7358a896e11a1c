package observability

import (
	"context"
	"time"

	"github.com/wolkoffmikhail/dds-analytics/internal/store"
)

// InstrumentedStore wraps a store.Store and records per-table query metrics.
type InstrumentedStore struct {
	next    store.Store
	metrics *Metrics
}

// InstrumentStore decorates the store. A nil metrics value passes the store
// through unchanged.
func InstrumentStore(next store.Store, metrics *Metrics) store.Store {
	if metrics == nil {
		return next
	}
	return &InstrumentedStore{next: next, metrics: metrics}
}

// Select forwards the query and observes its duration and outcome.
func (s *InstrumentedStore) Select(ctx context.Context, q store.Query) (store.Result, error) {
	start := time.Now()
	res, err := s.next.Select(ctx, q)
	s.metrics.ObserveQuery(q.Table, time.Since(start), err)
	return res, err
}
