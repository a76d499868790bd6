package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"finance-sim/internal/auth"
	"finance-sim/internal/model"
)

type quoteResponse struct {
	model.Quote
	PriceUSD string `json:"price_usd"`
}

type receiptResponse struct {
	model.Receipt
	PriceUSD string `json:"price_usd"`
	TotalUSD string `json:"total_usd"`
	CashUSD  string `json:"cash_usd"`
}

type positionRow struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Shares        int64           `json:"shares"`
	Price         decimal.Decimal `json:"price"`
	PriceUSD      string          `json:"price_usd"`
	Value         decimal.Decimal `json:"value"`
	ValueUSD      string          `json:"value_usd"`
	AvgCost       decimal.Decimal `json:"avg_cost"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

type portfolioResponse struct {
	Positions   []positionRow   `json:"positions"`
	Cash        decimal.Decimal `json:"cash"`
	CashUSD     string          `json:"cash_usd"`
	Holdings    decimal.Decimal `json:"holdings"`
	HoldingsUSD string          `json:"holdings_usd"`
	Total       decimal.Decimal `json:"total"`
	TotalUSD    string          `json:"total_usd"`
}

type historyRow struct {
	ID       int64           `json:"id"`
	Side     model.Side      `json:"side"`
	Symbol   string          `json:"symbol"`
	Shares   int64           `json:"shares"`
	Price    decimal.Decimal `json:"price"`
	PriceUSD string          `json:"price_usd"`
	At       time.Time       `json:"transacted_at"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q, err := s.engine.Quote(r.Context(), r.FormValue("symbol"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{Quote: q, PriceUSD: model.USD(q.Price)})
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserFrom(r.Context())
	rc, err := s.engine.Buy(r.Context(), uid, r.FormValue("symbol"), r.FormValue("shares"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceipt(rc))
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserFrom(r.Context())
	rc, err := s.engine.Sell(r.Context(), uid, r.FormValue("symbol"), r.FormValue("shares"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceipt(rc))
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserFrom(r.Context())
	v, err := s.engine.ViewPortfolio(r.Context(), uid)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := portfolioResponse{
		Positions:   make([]positionRow, 0, len(v.Positions)),
		Cash:        v.Cash,
		CashUSD:     model.USD(v.Cash),
		Holdings:    v.Holdings,
		HoldingsUSD: model.USD(v.Holdings),
		Total:       v.Total,
		TotalUSD:    model.USD(v.Total),
	}
	for _, p := range v.Positions {
		resp.Positions = append(resp.Positions, positionRow{
			Symbol:        p.Symbol,
			Name:          p.Name,
			Shares:        p.Shares,
			Price:         p.Price,
			PriceUSD:      model.USD(p.Price),
			Value:         p.Value,
			ValueUSD:      model.USD(p.Value),
			AvgCost:       p.AvgCost,
			UnrealizedPnL: p.UnrealizedPnL,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserFrom(r.Context())
	trades, err := s.engine.History(r.Context(), uid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows := make([]historyRow, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, historyRow{
			ID:       t.ID,
			Side:     t.Side(),
			Symbol:   t.Symbol,
			Shares:   t.Shares,
			Price:    t.Price,
			PriceUSD: model.USD(t.Price),
			At:       t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, rows)
}

func toReceipt(rc model.Receipt) receiptResponse {
	return receiptResponse{
		Receipt:  rc,
		PriceUSD: model.USD(rc.Price),
		TotalUSD: model.USD(rc.Total),
		CashUSD:  model.USD(rc.Cash),
	}
}
