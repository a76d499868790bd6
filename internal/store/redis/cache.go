// Package redis caches live quotes in Redis behind a circuit breaker.
// A Redis outage degrades to cache misses; it never fails a lookup.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"finance-sim/internal/metrics"
	"finance-sim/internal/model"
)

const keyPrefix = "finance:quote:"

// CacheConfig configures the quote cache.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // how long a quote stays fresh, e.g. 15s
}

// cmdable is the subset of the go-redis client the cache uses.
type cmdable interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Ping(ctx context.Context) *goredis.StatusCmd
	Close() error
}

// QuoteCache implements quote.Cache on Redis string keys with a TTL.
type QuoteCache struct {
	client  cmdable
	ttl     time.Duration
	breaker *CircuitBreaker
	log     *slog.Logger
}

// NewQuoteCache connects to Redis and pings it. An unreachable server is
// an error here so startup can decide to run without a cache.
func NewQuoteCache(cfg CacheConfig, m *metrics.Metrics) (*QuoteCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis quote cache connected", "addr", cfg.Addr, "ttl", cfg.TTL)
	return newQuoteCache(client, cfg.TTL, m), nil
}

func newQuoteCache(client cmdable, ttl time.Duration, m *metrics.Metrics) *QuoteCache {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	c := &QuoteCache{
		client:  client,
		ttl:     ttl,
		breaker: NewCircuitBreaker(5, 10*time.Second),
		log:     slog.Default().With("component", "quote-cache"),
	}
	c.breaker.OnStateChange = func(from, to State) {
		m.SetBreakerState(int(to))
		c.log.Warn("redis circuit breaker", "from", from.String(), "to", to.String())
	}
	return c
}

// Get returns a fresh cached quote for symbol. Redis errors count as misses.
func (c *QuoteCache) Get(ctx context.Context, symbol string) (model.Quote, bool) {
	var raw string
	err := c.breaker.Execute(func() error {
		v, err := c.client.Get(ctx, keyPrefix+symbol).Result()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		raw = v
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrCircuitOpen) {
			c.log.Debug("redis get failed", "symbol", symbol, "error", err)
		}
		return model.Quote{}, false
	}
	if raw == "" {
		return model.Quote{}, false
	}

	var q model.Quote
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		c.log.Warn("discarding corrupt cached quote", "symbol", symbol, "error", err)
		return model.Quote{}, false
	}
	return q, true
}

// Put stores q for the cache TTL. Failures are logged and dropped.
func (c *QuoteCache) Put(ctx context.Context, q model.Quote) {
	data, err := json.Marshal(q)
	if err != nil {
		return
	}
	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, keyPrefix+q.Symbol, data, c.ttl).Err()
	})
	if err != nil && !errors.Is(err, ErrCircuitOpen) {
		c.log.Debug("redis set failed", "symbol", q.Symbol, "error", err)
	}
}

// Ping is the health probe for the cache.
func (c *QuoteCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// State reports the breaker state.
func (c *QuoteCache) State() State { return c.breaker.CurrentState() }

func (c *QuoteCache) Close() error {
	return c.client.Close()
}
