// Package portfolio values holdings and settles trades.
//
// The Engine derives positions from the append-only trade ledger, prices
// them through a quote.Provider, and applies buy/sell commands as a single
// atomic change to cash and trade history. Expected rejections come back as
// *model.Failure values; anything else is an infrastructure fault.
package portfolio

import (
	"github.com/shopspring/decimal"
)

// Position is one priced row of the portfolio view.
type Position struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Shares        int64           `json:"shares"`
	Price         decimal.Decimal `json:"price"`
	Value         decimal.Decimal `json:"value"`
	AvgCost       decimal.Decimal `json:"avg_cost"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

// View is the valued portfolio of one user.
type View struct {
	UserID    int64           `json:"user_id"`
	Cash      decimal.Decimal `json:"cash"`
	Positions []Position      `json:"positions"`
	Holdings  decimal.Decimal `json:"holdings"` // Σ position values
	Total     decimal.Decimal `json:"total"`    // cash + holdings
}

func buildView(userID int64, cash decimal.Decimal, holdings []Holding, prices map[string]quoteRow) View {
	v := View{
		UserID:    userID,
		Cash:      cash,
		Positions: make([]Position, 0, len(holdings)),
		Holdings:  decimal.Zero,
	}
	for _, h := range holdings {
		q := prices[h.Symbol]
		shares := decimal.NewFromInt(h.Shares)
		value := q.price.Mul(shares)
		v.Positions = append(v.Positions, Position{
			Symbol:        h.Symbol,
			Name:          q.name,
			Shares:        h.Shares,
			Price:         q.price,
			Value:         value,
			AvgCost:       h.AvgCost,
			UnrealizedPnL: value.Sub(h.AvgCost.Mul(shares)),
		})
		v.Holdings = v.Holdings.Add(value)
	}
	v.Total = cash.Add(v.Holdings)
	return v
}

type quoteRow struct {
	name  string
	price decimal.Decimal
}
