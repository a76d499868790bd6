// Package notification delivers settled-trade alerts to external channels.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finance-sim/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const AlertInfo AlertLevel = "INFO"

// Alert is a notification to be sent.
type Alert struct {
	Level   AlertLevel     `json:"level"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Receipt *model.Receipt `json:"receipt,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log.With("component", "notify")}
}

func (n *LogNotifier) Send(_ context.Context, alert Alert) error {
	n.log.Info(alert.Title, "level", alert.Level, "message", alert.Message)
	return nil
}

// TradeAlerts turns settled trades into alerts. Delivery runs in the
// background so a slow channel never holds up a request.
type TradeAlerts struct {
	notifier Notifier
	timeout  time.Duration
	log      *slog.Logger
	wg       sync.WaitGroup
}

// NewTradeAlerts sends through n with a per-alert timeout.
func NewTradeAlerts(n Notifier, log *slog.Logger) *TradeAlerts {
	if log == nil {
		log = slog.Default()
	}
	return &TradeAlerts{notifier: n, timeout: 10 * time.Second, log: log}
}

// TradeSettled implements model.SettlementListener.
func (t *TradeAlerts) TradeSettled(ctx context.Context, r model.Receipt) {
	alert := Alert{
		Level:   AlertInfo,
		Title:   fmt.Sprintf("%s %d %s", r.Side, r.Shares, r.Symbol),
		Message: fmt.Sprintf("%d shares of %s at %s, total %s, cash %s", r.Shares, r.Symbol, model.USD(r.Price), model.USD(r.Total), model.USD(r.Cash)),
		Receipt: &r,
	}

	// Detach from the request: it is about to finish.
	ctx = context.WithoutCancel(ctx)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, t.timeout)
		defer cancel()
		if err := t.notifier.Send(ctx, alert); err != nil {
			t.log.Warn("trade alert failed", "trade_id", r.TradeID, "error", err)
		}
	}()
}

// Wait blocks until in-flight alerts finish.
func (t *TradeAlerts) Wait() {
	t.wg.Wait()
}
