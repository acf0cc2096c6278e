package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tradewind/internal/broker"
	"tradewind/internal/config"
	"tradewind/internal/engine"
	"tradewind/internal/httpapi"
	"tradewind/internal/ledger"
	"tradewind/internal/marketdata"
	"tradewind/internal/opinion"
	"tradewind/internal/store"
	"tradewind/internal/strategy"
	"tradewind/internal/strategy/builtins"
	"tradewind/internal/util"
)

func main() {
	// Credentials usually live in .env during development.
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

	if len(cfg.Trading.Instruments) == 0 {
		log.Fatal("no instruments configured")
	}

	policy, err := buildPolicy(cfg)
	if err != nil {
		log.Fatalf("selecting policy: %v", err)
	}

	fills, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening fill store: %v", err)
	}
	defer fills.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Resume the session from the durable fill log.
	recorded, err := fills.ListFills(ctx)
	if err != nil {
		log.Fatalf("reading fill log: %v", err)
	}
	led, err := ledger.Restore(cfg.Trading.StartingCash, recorded, logger)
	if err != nil {
		log.Fatalf("restoring ledger: %v", err)
	}
	if len(recorded) > 0 {
		logger.Info("session resumed", "fills", len(recorded))
	}

	provider := marketdata.NewAlpacaProvider(
		cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.RateLimitPerMin)

	var opinions opinion.Provider
	if cfg.Opinion.Source == "news" {
		opinions = opinion.NewNewsProvider(
			cfg.Alpaca.APIKey, cfg.Alpaca.APISecret,
			time.Duration(cfg.Opinion.LookbackHours)*time.Hour,
			cfg.Alpaca.RateLimitPerMin)
	}

	var executor broker.Executor
	if cfg.Trading.PaperMode {
		executor = broker.NewSimulator(provider)
	} else {
		executor = broker.NewAlpacaExecutor(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
	}
	logger.Info("tradewind-trader starting",
		"policy", policy.Name(),
		"executor", executor.Name(),
		"instruments", cfg.Trading.Instruments,
	)

	hub := httpapi.NewHub(logger)
	go hub.Run()

	eng := engine.NewEngine(engine.Options{
		Provider:        provider,
		Opinions:        opinions,
		Policy:          policy,
		Risk:            engine.NewRiskManager(cfg.Trading.Risk),
		Executor:        executor,
		Ledger:          led,
		Fills:           fills,
		Events:          hub,
		Logger:          logger,
		ShortWindow:     cfg.Trading.ShortWindow,
		LongWindow:      cfg.Trading.LongWindow,
		DefaultQuantity: cfg.Trading.DefaultQuantity,
	})

	if err := eng.Warmup(ctx, cfg.Trading.Instruments); err != nil {
		log.Fatalf("warming up: %v", err)
	}

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: httpapi.NewServer(eng, fills, hub, logger).Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("dashboard listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return eng.Run(gctx, cfg.Trading.Instruments, time.Duration(cfg.Trading.PollSeconds)*time.Second)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("trader stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("trader stopped")
}

// buildPolicy constructs the configured decision policy from the registry of
// built-ins.
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
