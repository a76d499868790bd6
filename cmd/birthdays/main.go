// Command birthdays serves the standalone birthdays tracker.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"finance-sim/config"
	"finance-sim/internal/birthdays"
	"finance-sim/internal/logger"
	"finance-sim/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", "finance.toml", "Path to the TOML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[birthdays] %v", err)
	}
	lg := logger.Init("birthdays", logger.ParseLevel(cfg.LogLevel))

	path := cfg.Storage.BirthdaysSQLitePath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Fatalf("[birthdays] create data dir: %v", err)
	}
	db, err := sqlite.Open(path)
	if err != nil {
		log.Fatalf("[birthdays] %v", err)
	}
	defer db.Close()

	srv := &http.Server{
		Addr:              cfg.Server.BirthdaysAddr,
		Handler:           birthdays.NewHandler(db.Birthdays(), lg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		lg.Info("birthdays listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	lg.Info("birthdays stopped")
}
