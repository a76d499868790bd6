package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"finance-sim/internal/logger"
	"finance-sim/internal/metrics"
	"finance-sim/internal/model"
	"finance-sim/internal/quote"
)

// DefaultQuoteTimeout bounds every single provider call.
const DefaultQuoteTimeout = 5 * time.Second

// Engine validates and settles trade commands and values portfolios.
// It is safe for concurrent use; commands for the same user are serialized.
type Engine struct {
	ledger       model.Ledger
	quotes       quote.Provider
	locks        *userLocks
	quoteTimeout time.Duration
	listeners    []model.SettlementListener
	metrics      *metrics.Metrics
	log          *slog.Logger
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithQuoteTimeout sets the per-lookup timeout.
func WithQuoteTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.quoteTimeout = d
		}
	}
}

// WithListener adds a listener told about each settled trade.
func WithListener(l model.SettlementListener) Option {
	return func(e *Engine) {
		if l != nil {
			e.listeners = append(e.listeners, l)
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock overrides time.Now for trade timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over ledger and quotes.
func NewEngine(ledger model.Ledger, quotes quote.Provider, opts ...Option) *Engine {
	e := &Engine{
		ledger:       ledger,
		quotes:       quotes,
		locks:        newUserLocks(),
		quoteTimeout: DefaultQuoteTimeout,
		log:          slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "portfolio")
	return e
}

// Quote returns the current quote for symbol. It never mutates anything.
func (e *Engine) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	symbol = model.NormalizeSymbol(symbol)
	if symbol == "" {
		return model.Quote{}, model.Fail(model.KindMissingInput, "missing symbol")
	}
	q, err := e.fetch(ctx, symbol)
	if err != nil {
		return model.Quote{}, quoteFailure(symbol, err, model.KindInvalidSymbol)
	}
	return q, nil
}

// Buy purchases shares of symbol at the current price.
func (e *Engine) Buy(ctx context.Context, userID int64, symbol, sharesRaw string) (model.Receipt, error) {
	symbol = model.NormalizeSymbol(symbol)
	if symbol == "" {
		return e.reject(ctx, model.SideBuy, model.Fail(model.KindMissingInput, "missing symbol"))
	}
	shares, err := parseShares(sharesRaw)
	if err != nil {
		return e.reject(ctx, model.SideBuy, err)
	}

	unlock := e.locks.Lock(userID)
	defer unlock()

	q, err := e.fetch(ctx, symbol)
	if err != nil {
		return e.reject(ctx, model.SideBuy, quoteFailure(symbol, err, model.KindInvalidSymbol))
	}
	if shares < 1 {
		return e.reject(ctx, model.SideBuy, model.Fail(model.KindInvalidAmount, "invalid amount"))
	}

	cost := q.Price.Mul(decimal.NewFromInt(shares))
	rec := model.TradeRecord{
		UserID:    userID,
		Symbol:    symbol,
		Shares:    shares,
		Price:     q.Price,
		CreatedAt: e.now().UTC(),
	}

	var cash decimal.Decimal
	err = e.ledger.Settle(ctx, userID, func(tx model.LedgerTx) error {
		balance, err := tx.Cash(ctx)
		if err != nil {
			return err
		}
		// Exhausting cash exactly is rejected too.
		if cost.GreaterThanOrEqual(balance) {
			return model.Fail(model.KindInsufficientFunds,
				"not enough money: %s needed, %s available", model.USD(cost), model.USD(balance))
		}
		if rec.ID, err = tx.AppendTrade(ctx, rec); err != nil {
			return err
		}
		cash = balance.Sub(cost)
		return tx.SetCash(ctx, cash)
	})
	if err != nil {
		return e.settleError(ctx, model.SideBuy, err)
	}

	return e.settled(ctx, rec, q, cash), nil
}

// Sell sells shares of a symbol the user currently holds.
func (e *Engine) Sell(ctx context.Context, userID int64, symbol, sharesRaw string) (model.Receipt, error) {
	symbol = model.NormalizeSymbol(symbol)

	unlock := e.locks.Lock(userID)
	defer unlock()

	trades, err := e.ledger.Trades(ctx, userID)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("list trades: %w", err)
	}
	held := NetShares(trades, symbol)
	if symbol == "" || held <= 0 {
		return e.reject(ctx, model.SideSell, model.Fail(model.KindInvalidSymbol, "you do not own any shares of %q", symbol))
	}

	shares, err := parseShares(sharesRaw)
	if err != nil {
		return e.reject(ctx, model.SideSell, err)
	}
	if shares < 1 {
		return e.reject(ctx, model.SideSell, model.Fail(model.KindInvalidAmount, "invalid amount"))
	}
	if shares > held {
		return e.reject(ctx, model.SideSell, insufficientShares(symbol, shares, held))
	}

	q, err := e.fetch(ctx, symbol)
	if err != nil {
		return e.reject(ctx, model.SideSell, quoteFailure(symbol, err, model.KindInvalidSymbol))
	}

	proceeds := q.Price.Mul(decimal.NewFromInt(shares))
	rec := model.TradeRecord{
		UserID:    userID,
		Symbol:    symbol,
		Shares:    -shares,
		Price:     q.Price,
		CreatedAt: e.now().UTC(),
	}

	var cash decimal.Decimal
	err = e.ledger.Settle(ctx, userID, func(tx model.LedgerTx) error {
		// Re-check inside the transaction: another process may share the store.
		trades, err := tx.Trades(ctx)
		if err != nil {
			return err
		}
		if held := NetShares(trades, symbol); shares > held {
			return insufficientShares(symbol, shares, held)
		}
		balance, err := tx.Cash(ctx)
		if err != nil {
			return err
		}
		if rec.ID, err = tx.AppendTrade(ctx, rec); err != nil {
			return err
		}
		cash = balance.Add(proceeds)
		return tx.SetCash(ctx, cash)
	})
	if err != nil {
		return e.settleError(ctx, model.SideSell, err)
	}

	return e.settled(ctx, rec, q, cash), nil
}

// ViewPortfolio values every open position at current prices. A single
// failed lookup fails the whole view; no partial view is returned.
func (e *Engine) ViewPortfolio(ctx context.Context, userID int64) (View, error) {
	unlock := e.locks.Lock(userID)
	cash, err := e.ledger.Cash(ctx, userID)
	if err != nil {
		unlock()
		return View{}, fmt.Errorf("read cash: %w", err)
	}
	trades, err := e.ledger.Trades(ctx, userID)
	unlock()
	if err != nil {
		return View{}, fmt.Errorf("list trades: %w", err)
	}

	holdings := Holdings(trades)
	quotes := make([]model.Quote, len(holdings))

	g, gctx := errgroup.WithContext(ctx)
	for i, h := range holdings {
		g.Go(func() error {
			q, err := e.fetch(gctx, h.Symbol)
			if err != nil {
				return model.Fail(model.KindQuoteUnavailable, "quote for %s unavailable", h.Symbol)
			}
			quotes[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return View{}, err
	}

	prices := make(map[string]quoteRow, len(holdings))
	for i, h := range holdings {
		prices[h.Symbol] = quoteRow{name: quotes[i].Name, price: quotes[i].Price}
	}
	return buildView(userID, cash, holdings, prices), nil
}

// History returns every trade of the user in the order it was recorded.
func (e *Engine) History(ctx context.Context, userID int64) ([]model.TradeRecord, error) {
	trades, err := e.ledger.Trades(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	return trades, nil
}

// fetch performs one bounded provider call.
func (e *Engine) fetch(ctx context.Context, symbol string) (model.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, e.quoteTimeout)
	defer cancel()

	start := time.Now()
	q, err := e.quotes.Lookup(ctx, symbol)
	failed := err != nil && !errors.Is(err, quote.ErrNotFound)
	e.metrics.ObserveQuote(time.Since(start), failed)
	if failed {
		e.log.Warn("quote lookup failed", append(logger.LogAttrs(ctx), "symbol", symbol, "error", err)...)
	}
	if err != nil {
		return model.Quote{}, err
	}
	// A symbol without a positive price cannot be traded or valued.
	if !q.Price.IsPositive() {
		e.log.Warn("non-positive quote ignored", append(logger.LogAttrs(ctx), "symbol", symbol, "price", q.Price.String())...)
		return model.Quote{}, fmt.Errorf("%s priced at %s: %w", symbol, q.Price, quote.ErrNotFound)
	}
	return q, nil
}

func (e *Engine) reject(ctx context.Context, side model.Side, err error) (model.Receipt, error) {
	kind, _ := model.KindOf(err)
	e.metrics.Rejected(string(side), string(kind))
	e.log.Info("trade rejected", append(logger.LogAttrs(ctx), "side", side, "kind", kind, "reason", err.Error())...)
	return model.Receipt{}, err
}

func (e *Engine) settleError(ctx context.Context, side model.Side, err error) (model.Receipt, error) {
	if _, ok := model.KindOf(err); ok {
		return e.reject(ctx, side, err)
	}
	return model.Receipt{}, fmt.Errorf("settle %s: %w", strings.ToLower(string(side)), err)
}

func (e *Engine) settled(ctx context.Context, rec model.TradeRecord, q model.Quote, cash decimal.Decimal) model.Receipt {
	side := rec.Side()
	shares := rec.Shares
	if shares < 0 {
		shares = -shares
	}
	r := model.Receipt{
		TradeID: rec.ID,
		UserID:  rec.UserID,
		Side:    side,
		Symbol:  rec.Symbol,
		Name:    q.Name,
		Shares:  shares,
		Price:   rec.Price,
		Total:   rec.Amount(),
		Cash:    cash,
		At:      rec.CreatedAt,
	}

	e.metrics.Settled(string(side))
	e.log.Info("trade settled", append(logger.LogAttrs(ctx),
		"user_id", r.UserID, "side", side, "symbol", r.Symbol, "shares", r.Shares,
		"price", r.Price.String(), "cash", r.Cash.String())...)

	for _, l := range e.listeners {
		l.TradeSettled(ctx, r)
	}
	return r
}

// parseShares reads a whole number of shares. Empty or non-integer input
// is missing input; range checks are left to the caller.
func parseShares(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, model.Fail(model.KindMissingInput, "missing shares")
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, model.Fail(model.KindMissingInput, "shares must be a whole number")
	}
	return n, nil
}

func quoteFailure(symbol string, err error, notFound model.Kind) error {
	if errors.Is(err, quote.ErrNotFound) {
		return model.Fail(notFound, "invalid symbol %q", symbol)
	}
	return model.Fail(model.KindQuoteUnavailable, "quote for %s unavailable", symbol)
}

func insufficientShares(symbol string, want, held int64) error {
	return model.Fail(model.KindInsufficientShares, "too many shares: you own %d of %s, tried to sell %d", held, symbol, want)
}
