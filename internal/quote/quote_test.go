package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-sim/internal/model"
)

func TestClientLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("token"))
		switch r.URL.Path {
		case "/stock/NFLX/quote":
			w.Write([]byte(`{"symbol":"NFLX","companyName":"Netflix Inc.","latestPrice":401.25}`))
		case "/stock/NULLPRICE/quote":
			w.Write([]byte(`{"symbol":"NULLPRICE","companyName":"Halted","latestPrice":null}`))
		case "/stock/FREE/quote":
			w.Write([]byte(`{"symbol":"FREE","companyName":"Free Lunch","latestPrice":0}`))
		case "/stock/BOOM/quote":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("upstream exploded"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient("secret", WithBaseURL(srv.URL), WithRateLimit(100))
	ctx := context.Background()

	q, err := c.Lookup(ctx, " nflx")
	require.NoError(t, err)
	assert.Equal(t, "NFLX", q.Symbol)
	assert.Equal(t, "Netflix Inc.", q.Name)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("401.25")), "price %s", q.Price)

	_, err = c.Lookup(ctx, "ZZZZ")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Lookup(ctx, "nullprice")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Lookup(ctx, "free")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Lookup(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Lookup(ctx, "boom")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestClientHonoursContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient("k", WithBaseURL(srv.URL))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Lookup(ctx, "SLOW")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestParseStatic(t *testing.T) {
	s, err := ParseStatic("aapl=189.50, NFLX=401.02:Netflix Inc")
	require.NoError(t, err)

	q, err := s.Lookup(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Name)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("189.5")))

	q, err = s.Lookup(context.Background(), "nflx")
	require.NoError(t, err)
	assert.Equal(t, "Netflix Inc", q.Name)

	_, err = s.Lookup(context.Background(), "MSFT")
	assert.ErrorIs(t, err, ErrNotFound)

	for _, bad := range []string{"AAPL", "AAPL=abc", "AAPL=0", "AAPL=-3"} {
		_, err := ParseStatic(bad)
		assert.Error(t, err, bad)
	}
}

type mapCache struct {
	mu sync.Mutex
	m  map[string]model.Quote
}

func (c *mapCache) Get(_ context.Context, symbol string) (model.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.m[symbol]
	return q, ok
}

func (c *mapCache) Put(_ context.Context, q model.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[q.Symbol] = q
}

func TestCached(t *testing.T) {
	calls := 0
	next := ProviderFunc(func(ctx context.Context, symbol string) (model.Quote, error) {
		calls++
		if symbol == "NFLX" {
			return model.Quote{Symbol: "NFLX", Name: "Netflix", Price: decimal.NewFromInt(400)}, nil
		}
		return model.Quote{}, ErrNotFound
	})
	c := NewCached(next, &mapCache{m: map[string]model.Quote{}}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		q, err := c.Lookup(ctx, "nflx")
		require.NoError(t, err)
		assert.Equal(t, "Netflix", q.Name)
	}
	assert.Equal(t, 1, calls, "later lookups should hit the cache")

	_, err := c.Lookup(ctx, "NOPE")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, _ = c.Lookup(ctx, "NOPE")
	assert.Equal(t, 3, calls, "misses are never cached")
}
