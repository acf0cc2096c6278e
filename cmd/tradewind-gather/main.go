package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"tradewind/internal/config"
	"tradewind/internal/domain"
	"tradewind/internal/marketdata"
	"tradewind/internal/store"
	"tradewind/internal/util"
)

// tradewind-gather pulls daily observation history from the Alpaca data API
// into the local Parquet store so backtests can run offline.
func main() {
	_ = godotenv.Load()

	var (
		cfgPath     = flag.String("config", "config/tradewind.yaml", "path to config file")
		instruments = flag.String("instruments", "", "comma-separated instruments (default: config)")
		days        = flag.Int("days", 365, "how many daily bars to fetch per instrument")
	)
	flag.Parse()

	if p := os.Getenv("TRADEWIND_CONFIG"); p != "" && *cfgPath == "config/tradewind.yaml" {
		cfgPath = &p
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	ids := cfg.Trading.Instruments
	if *instruments != "" {
		ids = strings.Split(*instruments, ",")
		for i := range ids {
			ids[i] = strings.ToUpper(strings.TrimSpace(ids[i]))
		}
	}
	if len(ids) == 0 {
		log.Fatal("no instruments to gather")
	}

	provider := marketdata.NewAlpacaProvider(
		cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.RateLimitPerMin)
	obsStore := store.NewParquetStore(cfg.Storage.DataDir)
	ctx := context.Background()

	for _, id := range ids {
		series, err := provider.History(ctx, id, *days)
		if err != nil {
			logger.Error("fetching history", "instrument", id, "err", err)
			continue
		}
		obs := make([]domain.PriceObservation, 0, series.Len())
		for i := 0; i < series.Len(); i++ {
			obs = append(obs, series.At(i))
		}
		if err := obsStore.WriteObservations(ctx, obs); err != nil {
			log.Fatalf("writing observations for %s: %v", id, err)
		}
		logger.Info("gathered", "instrument", id, "observations", len(obs))
	}
}
