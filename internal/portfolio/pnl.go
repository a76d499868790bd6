package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"finance-sim/internal/model"
)

// Holding is the net position in one symbol, derived from the trade history.
type Holding struct {
	Symbol  string          `json:"symbol"`
	Shares  int64           `json:"shares"`
	AvgCost decimal.Decimal `json:"avg_cost"` // weighted average purchase price
}

// costEntry tracks the running weighted-average cost of a symbol.
type costEntry struct {
	Shares  int64
	AvgCost decimal.Decimal
}

// Holdings folds trades into net positions. Symbols whose net share count
// is zero or negative are excluded. The result is sorted by symbol.
func Holdings(trades []model.TradeRecord) []Holding {
	basis := make(map[string]costEntry)
	for _, t := range trades {
		entry := basis[t.Symbol]
		qty := decimal.NewFromInt(t.Shares)

		if t.Shares > 0 {
			if entry.Shares <= 0 {
				entry.AvgCost = t.Price
			} else {
				held := decimal.NewFromInt(entry.Shares)
				totalCost := entry.AvgCost.Mul(held).Add(t.Price.Mul(qty))
				entry.AvgCost = totalCost.Div(held.Add(qty))
			}
		}
		entry.Shares += t.Shares
		if entry.Shares <= 0 {
			entry.AvgCost = decimal.Zero
		}
		basis[t.Symbol] = entry
	}

	holdings := make([]Holding, 0, len(basis))
	for sym, entry := range basis {
		if entry.Shares <= 0 {
			continue
		}
		holdings = append(holdings, Holding{
			Symbol:  sym,
			Shares:  entry.Shares,
			AvgCost: entry.AvgCost.Round(4),
		})
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })
	return holdings
}

// NetShares returns the signed sum of shares held in symbol.
func NetShares(trades []model.TradeRecord, symbol string) int64 {
	var n int64
	for _, t := range trades {
		if t.Symbol == symbol {
			n += t.Shares
		}
	}
	return n
}
