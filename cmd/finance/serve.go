package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"finance-sim/internal/api"
	"finance-sim/internal/auth"
	"finance-sim/internal/feed"
	"finance-sim/internal/logger"
	"finance-sim/internal/metrics"
	"finance-sim/internal/notification"
	"finance-sim/internal/portfolio"
)

type serveCmd struct{}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the finance HTTP API" }
func (*serveCmd) Usage() string {
	return `serve

  Serves the JSON API on FINANCE_ADDR and /metrics, /healthz on METRICS_ADDR.
  Quotes come from the live API (API_KEY) or STATIC_QUOTES.
`
}

func (*serveCmd) SetFlags(*flag.FlagSet) {}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.run(ctx); err != nil {
		log.Printf("[finance] %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *serveCmd) run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lg := logger.Init("finance", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Metrics & health ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus()

	// ---- Storage ----
	db, err := openDB(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()
	health.AddProbe("sqlite", true, db.Ping)

	// ---- Quotes ----
	provider, closeCache, err := buildProvider(cfg, m, health, lg)
	if err != nil {
		return err
	}
	defer closeCache()

	// ---- Settlement listeners ----
	hub := feed.NewHub(lg)
	defer hub.Close()

	var notifier notification.Notifier = notification.NewLogNotifier(lg)
	if cfg.Notify.WebhookURL != "" {
		notifier = notification.NewWebhookNotifier(cfg.Notify.WebhookURL)
	}
	alerts := notification.NewTradeAlerts(notifier, lg)
	defer alerts.Wait()

	engine := portfolio.NewEngine(db.Ledger(), provider,
		portfolio.WithQuoteTimeout(cfg.QuoteTimeout()),
		portfolio.WithListener(hub),
		portfolio.WithListener(alerts),
		portfolio.WithMetrics(m),
		portfolio.WithLogger(lg),
	)

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = randomSecret()
		lg.Warn("JWT_SECRET not set, sessions will not survive a restart")
	}

	srv := api.NewServer(api.Deps{
		Engine:       engine,
		Users:        db.Users(),
		Gate:         auth.NewGate(secret, cfg.SessionTTL()),
		StartingCash: cfg.StartingCash(),
		Feed:         hub,
		Metrics:      m,
		Health:       health,
		Log:          lg,
	})

	health.CheckAll(ctx)
	health.StartLivenessChecker(ctx, 10*time.Second)
	metricsSrv := metrics.NewServer(cfg.Server.MetricsAddr, health, reg)
	metricsSrv.Start()

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		lg.Info("finance api listening", "addr", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		lg.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	httpSrv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	lg.Info("shutdown complete")
	return nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
