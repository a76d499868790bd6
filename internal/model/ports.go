package model

import (
	"context"

	"github.com/shopspring/decimal"
)

// ── Storage Port Interfaces ──
// These interfaces decouple the portfolio engine from the concrete store
// (SQLite). Tests satisfy them with in-memory doubles.

// LedgerReader reads a user's cash balance and trade history.
type LedgerReader interface {
	// Cash returns the user's current cash balance.
	Cash(ctx context.Context, userID int64) (decimal.Decimal, error)

	// Trades returns every trade of the user in insertion order.
	Trades(ctx context.Context, userID int64) ([]TradeRecord, error)
}

// Ledger is the persistent store behind the portfolio engine.
type Ledger interface {
	LedgerReader

	// Settle runs fn inside one atomic unit scoped to userID. If fn returns
	// an error nothing it wrote is kept, and that error is returned as is.
	Settle(ctx context.Context, userID int64, fn func(tx LedgerTx) error) error
}

// LedgerTx is the view of the ledger inside a settlement.
type LedgerTx interface {
	Cash(ctx context.Context) (decimal.Decimal, error)
	Trades(ctx context.Context) ([]TradeRecord, error)
	SetCash(ctx context.Context, cash decimal.Decimal) error

	// AppendTrade inserts rec and returns its assigned id.
	AppendTrade(ctx context.Context, rec TradeRecord) (int64, error)
}

// SettlementListener is told about every settled trade, after the ledger
// commit. Implementations must not block for long.
type SettlementListener interface {
	TradeSettled(ctx context.Context, r Receipt)
}
