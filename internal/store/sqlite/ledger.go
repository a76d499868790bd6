package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"finance-sim/internal/model"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Ledger implements model.Ledger on the users and trades tables.
type Ledger struct {
	db *sql.DB
}

var _ model.Ledger = (*Ledger)(nil)

func (l *Ledger) Cash(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return readCash(ctx, l.db, userID)
}

func (l *Ledger) Trades(ctx context.Context, userID int64) ([]model.TradeRecord, error) {
	return readTrades(ctx, l.db, userID)
}

// Settle runs fn in one immediate transaction. Any error from fn rolls
// everything back and is returned unwrapped.
func (l *Ledger) Settle(ctx context.Context, userID int64, fn func(tx model.LedgerTx) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&ledgerTx{tx: tx, userID: userID}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	return nil
}

type ledgerTx struct {
	tx     *sql.Tx
	userID int64
}

func (t *ledgerTx) Cash(ctx context.Context) (decimal.Decimal, error) {
	return readCash(ctx, t.tx, t.userID)
}

func (t *ledgerTx) Trades(ctx context.Context) ([]model.TradeRecord, error) {
	return readTrades(ctx, t.tx, t.userID)
}

func (t *ledgerTx) SetCash(ctx context.Context, cash decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE users SET cash = ? WHERE id = ?`, cash.String(), t.userID)
	if err != nil {
		return fmt.Errorf("sqlite update cash: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (t *ledgerTx) AppendTrade(ctx context.Context, rec model.TradeRecord) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO trades (user_id, symbol, shares, price, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, t.userID, rec.Symbol, rec.Shares, rec.Price.String(), rec.CreatedAt.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite insert trade: %w", err)
	}
	return res.LastInsertId()
}

func readCash(ctx context.Context, q queryer, userID int64) (decimal.Decimal, error) {
	var cash decimal.Decimal
	err := q.QueryRowContext(ctx, `SELECT cash FROM users WHERE id = ?`, userID).Scan(&cash)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, model.ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("sqlite read cash: %w", err)
	}
	return cash, nil
}

// readTrades returns the user's trades in insertion order.
func readTrades(ctx context.Context, q queryer, userID int64) ([]model.TradeRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, user_id, symbol, shares, price, created_at
		FROM trades
		WHERE user_id = ?
		ORDER BY id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var trades []model.TradeRecord
	for rows.Next() {
		var t model.TradeRecord
		var ts int64
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Shares, &t.Price, &ts); err != nil {
			return nil, fmt.Errorf("sqlite scan trade: %w", err)
		}
		t.CreatedAt = time.Unix(0, ts).UTC()
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
