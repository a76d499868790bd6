package quote

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"finance-sim/internal/model"
)

// Static serves quotes from an in-memory table. It backs STATIC_QUOTES for
// offline runs and is the provider used by tests.
type Static struct {
	mu     sync.RWMutex
	quotes map[string]model.Quote
}

// NewStatic builds a table from quotes, keyed by normalized symbol.
func NewStatic(quotes ...model.Quote) *Static {
	s := &Static{quotes: make(map[string]model.Quote, len(quotes))}
	for _, q := range quotes {
		s.Set(q)
	}
	return s
}

// ParseStatic parses "AAPL=189.50,NFLX=401.02:Netflix Inc" into a table.
// The optional ":name" suffix sets the display name.
func ParseStatic(table string) (*Static, error) {
	s := NewStatic()
	for _, part := range strings.Split(table, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sym, rest, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("static quote %q: want SYMBOL=PRICE", part)
		}
		priceStr, name, _ := strings.Cut(rest, ":")
		price, err := decimal.NewFromString(strings.TrimSpace(priceStr))
		if err != nil {
			return nil, fmt.Errorf("static quote %q: %w", part, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("static quote %q: price must be positive", part)
		}
		sym = model.NormalizeSymbol(sym)
		if name == "" {
			name = sym
		}
		s.Set(model.Quote{Symbol: sym, Name: strings.TrimSpace(name), Price: price})
	}
	return s, nil
}

// Set adds or replaces a quote.
func (s *Static) Set(q model.Quote) {
	q.Symbol = model.NormalizeSymbol(q.Symbol)
	s.mu.Lock()
	s.quotes[q.Symbol] = q
	s.mu.Unlock()
}

// Lookup implements Provider.
func (s *Static) Lookup(ctx context.Context, symbol string) (model.Quote, error) {
	if err := ctx.Err(); err != nil {
		return model.Quote{}, err
	}
	s.mu.RLock()
	q, ok := s.quotes[model.NormalizeSymbol(symbol)]
	s.mu.RUnlock()
	if !ok {
		return model.Quote{}, ErrNotFound
	}
	return q, nil
}
