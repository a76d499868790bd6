package quote

import (
	"context"

	"finance-sim/internal/metrics"
	"finance-sim/internal/model"
)

// Cache stores recent quotes. Misses and cache faults are indistinguishable
// to callers; a broken cache only costs a provider round trip.
type Cache interface {
	Get(ctx context.Context, symbol string) (model.Quote, bool)
	Put(ctx context.Context, q model.Quote)
}

// Cached serves lookups from cache when possible. Only successful lookups
// are cached; unknown symbols always reach the provider.
type Cached struct {
	next    Provider
	cache   Cache
	metrics *metrics.Metrics
}

// NewCached wraps next with cache. m may be nil.
func NewCached(next Provider, cache Cache, m *metrics.Metrics) *Cached {
	return &Cached{next: next, cache: cache, metrics: m}
}

// Lookup implements Provider.
func (c *Cached) Lookup(ctx context.Context, symbol string) (model.Quote, error) {
	symbol = model.NormalizeSymbol(symbol)
	if q, ok := c.cache.Get(ctx, symbol); ok {
		c.metrics.CacheResult(true)
		return q, nil
	}
	c.metrics.CacheResult(false)

	q, err := c.next.Lookup(ctx, symbol)
	if err != nil {
		return model.Quote{}, err
	}
	c.cache.Put(ctx, q)
	return q, nil
}
