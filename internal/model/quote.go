package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Quote is a point-in-time price for a ticker symbol. It is never persisted.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// NormalizeSymbol trims and upper-cases a ticker as typed by a user.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
