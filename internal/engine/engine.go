// Package engine coordinates the live decision cycle: market data in,
// indicator and strategy decisions, risk validation, execution, and fill
// application, with the ledger as the single point of mutation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tradewind/internal/broker"
	"tradewind/internal/domain"
	"tradewind/internal/indicator"
	"tradewind/internal/ledger"
	"tradewind/internal/marketdata"
	"tradewind/internal/opinion"
	"tradewind/internal/store"
	"tradewind/internal/strategy"
)

// Event is a trading-lifecycle notification pushed to observers (dashboard,
// logs). Events are advisory; dropping them never affects trading.
type Event struct {
	Type         string    `json:"type"` // "fill", "rejection", "execution_error", "halt"
	Time         time.Time `json:"time"`
	InstrumentID string    `json:"instrument_id"`
	Detail       any       `json:"detail,omitempty"`
}

// EventPublisher receives engine events. Publish must not block.
type EventPublisher interface {
	Publish(ev Event)
}

// Options wires an Engine's collaborators and trading parameters.
type Options struct {
	Provider marketdata.Provider
	Opinions opinion.Provider // optional
	Policy   strategy.Policy
	Risk     *RiskManager
	Executor broker.Executor
	Ledger   *ledger.Ledger
	Fills    store.FillStore // optional durable fill log
	Events   EventPublisher  // optional
	Logger   *slog.Logger

	ShortWindow     int
	LongWindow      int
	DefaultQuantity int64
}

// Engine runs decision cycles. Cycles for different instruments may run
// concurrently; they serialize only at the ledger.
type Engine struct {
	opts Options
	log  *slog.Logger

	mu         sync.Mutex
	series     map[string]*domain.PriceSeries
	lastPrices map[string]float64
}

// NewEngine creates an Engine from the given options.
func NewEngine(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		opts:       opts,
		log:        log.With("component", "engine"),
		series:     make(map[string]*domain.PriceSeries),
		lastPrices: make(map[string]float64),
	}
}

// Warmup seeds each instrument's price series with stored or fetched history
// so the indicator does not need to wait out its window live.
func (e *Engine) Warmup(ctx context.Context, instruments []string) error {
	for _, id := range instruments {
		series, err := e.opts.Provider.History(ctx, id, e.opts.LongWindow+1)
		if err != nil {
			if errors.Is(err, marketdata.ErrUnavailable) {
				e.log.Warn("no warmup history", "instrument", id)
				e.setSeries(id, domain.NewPriceSeries(id))
				continue
			}
			return fmt.Errorf("warming up %s: %w", id, err)
		}
		e.setSeries(id, series)
		if last, ok := series.Last(); ok {
			e.setLastPrice(id, last.Price)
		}
		e.log.Info("warmed up", "instrument", id, "observations", series.Len())
	}
	return nil
}

// Run polls every instrument once per interval until the context is
// cancelled or the ledger halts. Instrument cycles within one tick run
// concurrently.
func (e *Engine) Run(ctx context.Context, instruments []string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var wg sync.WaitGroup
		for _, id := range instruments {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if err := e.RunCycle(ctx, id); err != nil {
					e.log.Error("decision cycle failed", "instrument", id, "err", err)
				}
			}(id)
		}
		wg.Wait()

		if e.opts.Ledger.Halted() {
			e.publish(Event{Type: "halt", Time: time.Now()})
			return ledger.ErrHalted
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle executes one decision cycle for one instrument: observe, signal,
// decide, validate, execute, apply. Unavailable data skips the cycle; only a
// ledger invariant breach is a hard error.
func (e *Engine) RunCycle(ctx context.Context, instrumentID string) error {
	obs, err := e.opts.Provider.Latest(ctx, instrumentID)
	if err != nil {
		if errors.Is(err, marketdata.ErrUnavailable) {
			e.log.Warn("no market data, skipping cycle", "instrument", instrumentID)
			return nil
		}
		return err
	}

	series := e.seriesFor(instrumentID)
	if err := series.Append(obs); err != nil {
		if errors.Is(err, domain.ErrDuplicateTimestamp) {
			// Same print observed twice across polls; nothing new to decide on.
			return nil
		}
		return fmt.Errorf("appending observation: %w", err)
	}
	e.setLastPrice(instrumentID, obs.Price)

	signal := indicator.ComputeSignal(series, e.opts.ShortWindow, e.opts.LongWindow)

	var op *domain.Opinion
	if e.opts.Opinions != nil {
		op, err = e.opts.Opinions.Current(ctx, instrumentID)
		if err != nil {
			// Advisory input only; absence must never block the cycle.
			e.log.Warn("opinion unavailable", "instrument", instrumentID, "err", err)
			op = nil
		}
	}

	intent := e.opts.Policy.Decide(strategy.Context{
		Series:          series,
		Signal:          signal,
		Opinion:         op,
		Position:        e.opts.Ledger.Position(instrumentID),
		Price:           obs.Price,
		Timestamp:       obs.Timestamp,
		DefaultQuantity: e.opts.DefaultQuantity,
	})

	approved, rejection := e.opts.Risk.Validate(Review{
		Intent:       intent,
		InstrumentID: instrumentID,
		Price:        obs.Price,
		AsOf:         obs.Timestamp,
		Portfolio:    e.opts.Ledger.Snapshot(),
		Prices:       e.snapshotPrices(),
	})
	if rejection != nil {
		if rejection.Reason != ReasonNoAction {
			e.log.Info("trade blocked", "instrument", instrumentID, "reason", rejection.Reason, "detail", rejection.Detail)
			e.publish(Event{Type: "rejection", Time: obs.Timestamp, InstrumentID: instrumentID, Detail: rejection})
		}
		return nil
	}

	fill, err := e.opts.Executor.Submit(ctx, *approved)
	if err != nil {
		// Brokerage failure: the portfolio stays untouched and the next
		// cycle decides afresh.
		e.log.Error("execution failed", "instrument", instrumentID, "err", err)
		e.publish(Event{Type: "execution_error", Time: obs.Timestamp, InstrumentID: instrumentID, Detail: err.Error()})
		return nil
	}

	if _, err := e.opts.Ledger.ApplyFill(fill); err != nil {
		if errors.Is(err, ledger.ErrDuplicateFill) {
			e.log.Warn("duplicate fill ignored", "order_ref", fill.OrderRef)
			return nil
		}
		return fmt.Errorf("applying fill %s: %w", fill.OrderRef, err)
	}

	if e.opts.Fills != nil {
		if err := e.opts.Fills.SaveFill(ctx, fill); err != nil {
			e.log.Error("persisting fill failed", "order_ref", fill.OrderRef, "err", err)
		}
	}

	e.log.Info("fill applied",
		"instrument", instrumentID,
		"direction", fill.Direction,
		"quantity", fill.Quantity,
		"price", fill.Price,
		"bounded_by", approved.BoundedBy,
	)
	e.publish(Event{Type: "fill", Time: fill.Timestamp, InstrumentID: instrumentID, Detail: fill})
	return nil
}

// Portfolio returns the current ledger snapshot.
func (e *Engine) Portfolio() domain.Portfolio {
	return e.opts.Ledger.Snapshot()
}

// LastPrices returns the most recent observed price per instrument.
func (e *Engine) LastPrices() map[string]float64 {
	return e.snapshotPrices()
}

// Halted reports whether the ledger has stopped accepting fills.
func (e *Engine) Halted() bool {
	return e.opts.Ledger.Halted()
}

func (e *Engine) publish(ev Event) {
	if e.opts.Events != nil {
		e.opts.Events.Publish(ev)
	}
}

func (e *Engine) seriesFor(id string) *domain.PriceSeries {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.series[id]
	if !ok {
		s = domain.NewPriceSeries(id)
		e.series[id] = s
	}
	return s
}

func (e *Engine) setSeries(id string, s *domain.PriceSeries) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.series[id] = s
}

func (e *Engine) setLastPrice(id string, price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastPrices[id] = price
}

func (e *Engine) snapshotPrices() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	prices := make(map[string]float64, len(e.lastPrices))
	for id, p := range e.lastPrices {
		prices[id] = p
	}
	return prices
}
