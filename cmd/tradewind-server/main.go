package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradewind/internal/config"
	"tradewind/internal/domain"
	"tradewind/internal/httpapi"
	"tradewind/internal/ledger"
	"tradewind/internal/marketdata"
	"tradewind/internal/store"
	"tradewind/internal/util"
)

// ledgerSource exposes a restored ledger as the read-only dashboard view.
type ledgerSource struct {
	led    *ledger.Ledger
	prices map[string]float64
}

func (s *ledgerSource) Portfolio() domain.Portfolio    { return s.led.Snapshot() }
func (s *ledgerSource) LastPrices() map[string]float64 { return s.prices }
func (s *ledgerSource) Halted() bool                   { return s.led.Halted() }

// tradewind-server serves the dashboard API over a recorded session without
// running the trading engine: the fill log rebuilds the portfolio and the
// local observation store prices it.
func main() {
	_ = godotenv.Load()

	cfgPath := "config/tradewind.yaml"
	if p := os.Getenv("TRADEWIND_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	fills, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening fill store: %v", err)
	}
	defer fills.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	recorded, err := fills.ListFills(ctx)
	if err != nil {
		log.Fatalf("reading fill log: %v", err)
	}
	led, err := ledger.Restore(cfg.Trading.StartingCash, recorded, logger)
	if err != nil {
		log.Fatalf("restoring ledger: %v", err)
	}
	logger.Info("session restored", "fills", len(recorded))

	// Price the restored positions from local history.
	provider := marketdata.NewStoreProvider(store.NewParquetStore(cfg.Storage.DataDir), 0)
	prices := make(map[string]float64)
	for id := range led.Snapshot().Positions {
		obs, err := provider.Latest(ctx, id)
		if err != nil {
			logger.Warn("no stored price, using cost basis", "instrument", id)
			continue
		}
		prices[id] = obs.Price
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: httpapi.NewServer(&ledgerSource{led: led, prices: prices}, fills, nil, logger).Handler(),
	}

	go func() {
		logger.Info("tradewind-server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
