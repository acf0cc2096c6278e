package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tradewind/internal/backtest"
	"tradewind/internal/config"
	"tradewind/internal/domain"
	"tradewind/internal/store"
	"tradewind/internal/strategy"
	"tradewind/internal/strategy/builtins"
	"tradewind/internal/util"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath     = flag.String("config", "config/tradewind.yaml", "path to config file")
		instruments = flag.String("instruments", "", "comma-separated instruments (default: config)")
		startStr    = flag.String("start", "", "start date YYYY-MM-DD (default: 1 year ago)")
		endStr      = flag.String("end", "", "end date YYYY-MM-DD (default: today)")
		outPath     = flag.String("out", "", "write the JSON report here instead of stdout")
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
		log.Fatal("no instruments to backtest")
	}

	start, end, err := parseRange(*startStr, *endStr)
	if err != nil {
		log.Fatalf("parsing date range: %v", err)
	}

	policy, err := buildPolicy(cfg)
	if err != nil {
		log.Fatalf("selecting policy: %v", err)
	}

	// Backtests run from local history; gather it beforehand.
	obsStore := store.NewParquetStore(cfg.Storage.DataDir)
	ctx := context.Background()

	obsByInstrument := make(map[string][]domain.PriceObservation, len(ids))
	for _, id := range ids {
		obs, err := obsStore.ReadObservations(ctx, id, start, end)
		if err != nil {
			log.Fatalf("reading observations for %s: %v", id, err)
		}
		logger.Info("loaded history", "instrument", id, "observations", len(obs))
		obsByInstrument[id] = obs
	}

	runner := backtest.NewRunner(backtest.Config{
		Policy:          policy,
		Limits:          cfg.Trading.Risk,
		StartingCash:    cfg.Trading.StartingCash,
		ShortWindow:     cfg.Trading.ShortWindow,
		LongWindow:      cfg.Trading.LongWindow,
		DefaultQuantity: cfg.Trading.DefaultQuantity,
	}, logger)

	report, err := runner.Run(obsByInstrument)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("creating report file: %v", err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("writing report: %v", err)
	}
}

func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if endStr != "" {
		var err error
		end, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("end date %q: %w", endStr, err)
		}
		end = end.AddDate(0, 0, 1) // inclusive
	}
	start := end.AddDate(-1, 0, 0)
	if startStr != "" {
		var err error
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("start date %q: %w", startStr, err)
		}
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s not before end %s", start, end)
	}
	return start, end, nil
}

func buildPolicy(cfg *config.Config) (strategy.Policy, error) {
	reg := strategy.NewRegistry()
	reg.Register(builtins.NewMomentum())
	reg.Register(builtins.NewMeanReversion(
		cfg.Trading.MeanReversion.Lookback, cfg.Trading.MeanReversion.Threshold))
	reg.Register(builtins.NewBreakout(
		cfg.Trading.Breakout.Lookback, cfg.Trading.Breakout.VolumeRatio, cfg.Trading.Breakout.StopPct))

	policy, ok := reg.Get(cfg.Trading.Policy)
	if !ok {
		return nil, fmt.Errorf("unknown policy %q (have %v)", cfg.Trading.Policy, reg.List())
	}
	return policy, nil
}
