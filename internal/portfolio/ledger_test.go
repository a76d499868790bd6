package portfolio

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"finance-sim/internal/model"
)

// memLedger is an in-memory model.Ledger. Settle works on a copy of the
// user's state and swaps it in only when fn succeeds.
type memLedger struct {
	mu      sync.Mutex
	cash    map[int64]decimal.Decimal
	trades  map[int64][]model.TradeRecord
	nextID  int64
	settles int
	failOn  error // returned by Settle without running fn when set
}

func newMemLedger() *memLedger {
	return &memLedger{
		cash:   make(map[int64]decimal.Decimal),
		trades: make(map[int64][]model.TradeRecord),
	}
}

func (l *memLedger) fund(userID int64, cash string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cash[userID] = decimal.RequireFromString(cash)
}

func (l *memLedger) Cash(_ context.Context, userID int64) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.cash[userID]
	if !ok {
		return decimal.Zero, errors.New("no such user")
	}
	return c, nil
}

func (l *memLedger) Trades(_ context.Context, userID int64) ([]model.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.TradeRecord(nil), l.trades[userID]...), nil
}

func (l *memLedger) Settle(_ context.Context, userID int64, fn func(tx model.LedgerTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failOn != nil {
		return l.failOn
	}
	tx := &memTx{
		cash:   l.cash[userID],
		trades: append([]model.TradeRecord(nil), l.trades[userID]...),
		nextID: l.nextID,
	}
	if err := fn(tx); err != nil {
		return err
	}
	l.cash[userID] = tx.cash
	l.trades[userID] = tx.trades
	l.nextID = tx.nextID
	l.settles++
	return nil
}

type memTx struct {
	cash   decimal.Decimal
	trades []model.TradeRecord
	nextID int64
}

func (t *memTx) Cash(context.Context) (decimal.Decimal, error) { return t.cash, nil }

func (t *memTx) Trades(context.Context) ([]model.TradeRecord, error) { return t.trades, nil }

func (t *memTx) SetCash(_ context.Context, c decimal.Decimal) error {
	t.cash = c
	return nil
}

func (t *memTx) AppendTrade(_ context.Context, rec model.TradeRecord) (int64, error) {
	t.nextID++
	rec.ID = t.nextID
	t.trades = append(t.trades, rec)
	return rec.ID, nil
}

type recordingListener struct {
	mu       sync.Mutex
	receipts []model.Receipt
}

func (r *recordingListener) TradeSettled(_ context.Context, rc model.Receipt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts = append(r.receipts, rc)
}
