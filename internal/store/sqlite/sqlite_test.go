package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-sim/internal/model"
	"finance-sim/internal/portfolio"
	"finance-sim/internal/quote"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "finance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUsers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	users := db.Users()

	u, err := users.Create(ctx, "alice", "hash", decimal.RequireFromString("10000.00"))
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	_, err = users.Create(ctx, "alice", "other", decimal.Zero)
	assert.ErrorIs(t, err, model.ErrUserExists)

	got, err := users.ByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.Hash)
	assert.True(t, got.Cash.Equal(decimal.NewFromInt(10000)))
	assert.False(t, got.TOTPEnabled)

	_, err = users.ByUsername(ctx, "ALICE")
	assert.ErrorIs(t, err, model.ErrUserNotFound)

	require.NoError(t, users.SetTOTP(ctx, u.ID, "SECRET", true))
	got, err = users.ByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "SECRET", got.TOTPSecret)
	assert.True(t, got.TOTPEnabled)

	assert.ErrorIs(t, users.SetTOTP(ctx, 999, "", false), model.ErrUserNotFound)
}

func TestLedgerSettle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	u, err := db.Users().Create(ctx, "bob", "h", decimal.NewFromInt(1000))
	require.NoError(t, err)
	ledger := db.Ledger()

	at := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	err = ledger.Settle(ctx, u.ID, func(tx model.LedgerTx) error {
		id, err := tx.AppendTrade(ctx, model.TradeRecord{Symbol: "X", Shares: 5, Price: decimal.RequireFromString("100.1234"), CreatedAt: at})
		if err != nil {
			return err
		}
		assert.NotZero(t, id)
		return tx.SetCash(ctx, decimal.RequireFromString("499.383"))
	})
	require.NoError(t, err)

	boom := errors.New("rejected")
	err = ledger.Settle(ctx, u.ID, func(tx model.LedgerTx) error {
		if _, err := tx.AppendTrade(ctx, model.TradeRecord{Symbol: "X", Shares: -1, Price: decimal.NewFromInt(1), CreatedAt: at}); err != nil {
			return err
		}
		if err := tx.SetCash(ctx, decimal.Zero); err != nil {
			return err
		}
		trades, err := tx.Trades(ctx)
		require.NoError(t, err)
		assert.Len(t, trades, 2, "writes are visible inside the transaction")
		return boom
	})
	require.ErrorIs(t, err, boom)

	cash, err := ledger.Cash(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "499.383", cash.String())

	trades, err := ledger.Trades(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "X", trades[0].Symbol)
	assert.Equal(t, int64(5), trades[0].Shares)
	assert.Equal(t, "100.1234", trades[0].Price.String())
	assert.True(t, at.Equal(trades[0].CreatedAt), "created_at %s", trades[0].CreatedAt)

	_, err = ledger.Cash(ctx, 999)
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestSettleReleasesConnectionOnPanic(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	u, err := db.Users().Create(ctx, "carol", "h", decimal.NewFromInt(1000))
	require.NoError(t, err)
	ledger := db.Ledger()

	assert.Panics(t, func() {
		ledger.Settle(ctx, u.ID, func(tx model.LedgerTx) error {
			if err := tx.SetCash(ctx, decimal.Zero); err != nil {
				return err
			}
			panic("mid-settle")
		})
	})

	// The single connection must be free and the write undone.
	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cash, err := ledger.Cash(readCtx, u.ID)
	require.NoError(t, err)
	assert.True(t, cash.Equal(decimal.NewFromInt(1000)), "cash %s", cash)

	require.NoError(t, ledger.Settle(readCtx, u.ID, func(tx model.LedgerTx) error {
		return tx.SetCash(readCtx, decimal.NewFromInt(900))
	}))
}

func TestTradesAreAppendOnly(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	u, err := db.Users().Create(ctx, "carol", "h", decimal.NewFromInt(1000))
	require.NoError(t, err)

	err = db.Ledger().Settle(ctx, u.ID, func(tx model.LedgerTx) error {
		_, err := tx.AppendTrade(ctx, model.TradeRecord{Symbol: "X", Shares: 1, Price: decimal.NewFromInt(1), CreatedAt: time.Now()})
		return err
	})
	require.NoError(t, err)

	_, err = db.db.ExecContext(ctx, `UPDATE trades SET shares = 100`)
	assert.ErrorContains(t, err, "append-only")
	_, err = db.db.ExecContext(ctx, `DELETE FROM trades`)
	assert.ErrorContains(t, err, "append-only")
}

func TestBirthdays(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	b := db.Birthdays()

	id, err := b.Add(ctx, model.Birthday{Name: "Harry", Month: 7, Day: 31})
	require.NoError(t, err)
	_, err = b.Add(ctx, model.Birthday{Name: "Ron", Month: 3, Day: 1})
	require.NoError(t, err)

	_, err = b.Add(ctx, model.Birthday{Name: "Nobody", Month: 13, Day: 1})
	assert.Error(t, err)

	list, err := b.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Harry", list[0].Name)

	require.NoError(t, b.Delete(ctx, id))
	assert.ErrorIs(t, b.Delete(ctx, id), model.ErrBirthdayNotFound)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
	require.NoError(t, db.Ping(context.Background()))
}

func TestEngineOnSQLite(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	u, err := db.Users().Create(ctx, "dave", "h", decimal.NewFromInt(1000))
	require.NoError(t, err)

	prices := quote.NewStatic(model.Quote{Symbol: "X", Name: "X Corp", Price: decimal.NewFromInt(100)})
	e := portfolio.NewEngine(db.Ledger(), prices)

	_, err = e.Buy(ctx, u.ID, "X", "5")
	require.NoError(t, err)
	prices.Set(model.Quote{Symbol: "X", Name: "X Corp", Price: decimal.NewFromInt(120)})
	r, err := e.Sell(ctx, u.ID, "x", "3")
	require.NoError(t, err)
	assert.Equal(t, "860", r.Cash.String())

	_, err = e.Sell(ctx, u.ID, "X", "3")
	kind, ok := model.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.KindInsufficientShares, kind)

	v, err := e.ViewPortfolio(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, v.Positions, 1)
	assert.Equal(t, int64(2), v.Positions[0].Shares)
	assert.Equal(t, "1100", v.Total.String())
}
