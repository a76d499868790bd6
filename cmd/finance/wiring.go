package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"finance-sim/config"
	"finance-sim/internal/metrics"
	"finance-sim/internal/quote"
	redisstore "finance-sim/internal/store/redis"
	"finance-sim/internal/store/sqlite"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func openDB(path string) (*sqlite.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return sqlite.Open(path)
}

// buildProvider returns the configured quote source, fronted by the Redis
// cache when one is reachable. closeFn releases the cache connection.
func buildProvider(cfg *config.Config, m *metrics.Metrics, health *metrics.HealthStatus, logger *slog.Logger) (p quote.Provider, closeFn func(), err error) {
	closeFn = func() {}

	if cfg.Quote.Static != "" {
		s, err := quote.ParseStatic(cfg.Quote.Static)
		if err != nil {
			return nil, closeFn, fmt.Errorf("static quotes: %w", err)
		}
		log.Printf("[finance] using static quote table")
		p = s
	} else {
		p = quote.NewClient(cfg.Quote.APIKey,
			quote.WithBaseURL(cfg.Quote.BaseURL),
			quote.WithRateLimit(cfg.Quote.RateLimit),
			quote.WithTimeout(cfg.QuoteTimeout()),
			quote.WithLogger(logger),
		)
	}

	if cfg.Redis.Addr == "" {
		return p, closeFn, nil
	}
	cache, err := redisstore.NewQuoteCache(redisstore.CacheConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		TTL:      cfg.CacheTTL(),
	}, m)
	if err != nil {
		log.Printf("[finance] WARNING: quote cache disabled: %v", err)
		return p, closeFn, nil
	}
	if health != nil {
		health.AddProbe("redis", false, cache.Ping)
	}
	return quote.NewCached(p, cache, m), func() { cache.Close() }, nil
}
