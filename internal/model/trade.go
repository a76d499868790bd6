package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade command.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeRecord is one immutable ledger entry.
// Shares is signed: positive for a purchase, negative for a sale.
type TradeRecord struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Symbol    string          `json:"symbol"`
	Shares    int64           `json:"shares"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// Side reports whether the record is a purchase or a sale.
func (t TradeRecord) Side() Side {
	if t.Shares < 0 {
		return SideSell
	}
	return SideBuy
}

// Amount returns the absolute cash value of the trade.
func (t TradeRecord) Amount() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Shares)).Abs()
}

// Receipt is returned for every settled buy or sell.
type Receipt struct {
	TradeID int64           `json:"trade_id"`
	UserID  int64           `json:"user_id"`
	Side    Side            `json:"side"`
	Symbol  string          `json:"symbol"`
	Name    string          `json:"name"`
	Shares  int64           `json:"shares"`
	Price   decimal.Decimal `json:"price"`
	Total   decimal.Decimal `json:"total"`
	Cash    decimal.Decimal `json:"cash"`
	At      time.Time       `json:"at"`
}
