package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-sim/internal/model"
)

func TestWebhookNotifier(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{Level: AlertInfo, Title: "hi", Message: "there"})
	require.NoError(t, err)
	assert.Equal(t, "INFO", got["level"])
	assert.Equal(t, "hi", got["title"])
	assert.NotEmpty(t, got["ts"])
}

func TestWebhookNotifierBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{Title: "x"})
	assert.ErrorContains(t, err, "502")
}

type captureNotifier struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (c *captureNotifier) Send(ctx context.Context, a Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, a)
	return c.err
}

func TestTradeAlerts(t *testing.T) {
	n := &captureNotifier{}
	ta := NewTradeAlerts(n, nil)

	ctx, cancel := context.WithCancel(context.Background())
	ta.TradeSettled(ctx, model.Receipt{
		TradeID: 4, Side: model.SideSell, Symbol: "NFLX", Shares: 3,
		Price: decimal.RequireFromString("120"), Total: decimal.RequireFromString("360"),
		Cash: decimal.RequireFromString("860"),
	})
	cancel()
	ta.Wait()

	require.Len(t, n.alerts, 1)
	a := n.alerts[0]
	assert.Equal(t, "SELL 3 NFLX", a.Title)
	assert.Contains(t, a.Message, "$360.00")
	assert.Contains(t, a.Message, "$860.00")
	require.NotNil(t, a.Receipt)
	assert.Equal(t, int64(4), a.Receipt.TradeID)
}

func TestTradeAlertsFailureIsLogged(t *testing.T) {
	ta := NewTradeAlerts(&captureNotifier{err: errors.New("down")}, nil)
	ta.TradeSettled(context.Background(), model.Receipt{Symbol: "X"})
	ta.Wait()
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, NewLogNotifier(nil).Send(context.Background(), Alert{Title: "t"}))
}
