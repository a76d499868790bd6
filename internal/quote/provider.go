// Package quote looks up current stock prices.
//
// Provider is the capability the portfolio engine consumes. Client talks to
// an IEX Cloud compatible HTTP API, Static serves a fixed price table, and
// Cached layers a short-lived cache in front of either.
package quote

import (
	"context"
	"errors"

	"finance-sim/internal/model"
)

// ErrNotFound is returned when the provider has no quote for a symbol.
var ErrNotFound = errors.New("quote: symbol not found")

// Provider returns the current quote for a symbol.
// Implementations must be safe for concurrent use.
type Provider interface {
	Lookup(ctx context.Context, symbol string) (model.Quote, error)
}

// ProviderFunc adapts a plain function to Provider.
type ProviderFunc func(ctx context.Context, symbol string) (model.Quote, error)

func (f ProviderFunc) Lookup(ctx context.Context, symbol string) (model.Quote, error) {
	return f(ctx, symbol)
}
