// Package backtest replays historical observations through the same
// indicator, strategy, risk, and ledger pipeline the live engine uses,
// producing a deterministic performance report.
package backtest

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"tradewind/internal/domain"
	"tradewind/internal/engine"
	"tradewind/internal/indicator"
	"tradewind/internal/ledger"
	"tradewind/internal/strategy"
)

// Config holds the strategy, limits, and sizing a run replays with.
type Config struct {
	Policy          strategy.Policy
	Limits          engine.RiskLimits
	StartingCash    float64
	ShortWindow     int
	LongWindow      int
	DefaultQuantity int64

	// Opinions optionally pins a static advisory opinion per instrument for
	// the whole run. Live opinion feeds are time-dependent and would break
	// replay determinism.
	Opinions map[string]domain.Opinion
}

// TradeRecord pairs an approved order with the fill it produced.
type TradeRecord struct {
	Order domain.ApprovedOrder `json:"order"`
	Fill  domain.Fill          `json:"fill"`
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}

// Report is the outcome of one backtest run. Identical inputs always produce
// an identical Report.
type Report struct {
	FinalEquity      float64           `json:"final_equity"`
	RealizedPnL      float64           `json:"realized_pnl"`
	TradeLog         []TradeRecord     `json:"trade_log"`
	MaxDrawdown      float64           `json:"max_drawdown"` // fraction of peak equity
	EquityCurve      []EquityPoint     `json:"equity_curve"`
	InstrumentErrors map[string]string `json:"instrument_errors,omitempty"`
}

// Runner replays observation history. Runs are strictly sequential: the
// merged observation order is the simulated clock, and parallelizing would
// break its tie-break ordering.
type Runner struct {
	cfg Config
	log *slog.Logger
}

// NewRunner creates a Runner for the given configuration.
func NewRunner(cfg Config, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{cfg: cfg, log: log.With("component", "backtest")}
}

// Run replays the given per-instrument observations through the decision
// pipeline. A malformed series (out-of-order timestamps, non-positive price)
// drops only that instrument, recorded in InstrumentErrors; the rest of the
// run proceeds.
func (r *Runner) Run(obsByInstrument map[string][]domain.PriceObservation) (*Report, error) {
	report := &Report{
		TradeLog:         []TradeRecord{},
		EquityCurve:      []EquityPoint{},
		InstrumentErrors: map[string]string{},
	}

	timeline := r.buildTimeline(obsByInstrument, report)

	led := ledger.New(r.cfg.StartingCash, r.log)
	risk := engine.NewRiskManager(r.cfg.Limits)
	series := make(map[string]*domain.PriceSeries)
	lastPrices := make(map[string]float64)

	peak := r.cfg.StartingCash
	orderSeq := 0

	for _, obs := range timeline {
		id := obs.InstrumentID
		s, ok := series[id]
		if !ok {
			s = domain.NewPriceSeries(id)
			series[id] = s
		}
		// Timeline entries already passed series validation.
		if err := s.Append(obs); err != nil {
			return nil, fmt.Errorf("replaying %s: %w", id, err)
		}
		lastPrices[id] = obs.Price

		signal := indicator.ComputeSignal(s, r.cfg.ShortWindow, r.cfg.LongWindow)

		var op *domain.Opinion
		if pinned, ok := r.cfg.Opinions[id]; ok {
			op = &pinned
		}

		intent := r.cfg.Policy.Decide(strategy.Context{
			Series:          s,
			Signal:          signal,
			Opinion:         op,
			Position:        led.Position(id),
			Price:           obs.Price,
			Timestamp:       obs.Timestamp,
			DefaultQuantity: r.cfg.DefaultQuantity,
		})

		approved, rejection := risk.Validate(engine.Review{
			Intent:       intent,
			InstrumentID: id,
			Price:        obs.Price,
			AsOf:         obs.Timestamp,
			Portfolio:    led.Snapshot(),
			Prices:       lastPrices,
		})
		if rejection == nil {
			orderSeq++
			fill := domain.Fill{
				OrderRef:     fmt.Sprintf("bt-%06d", orderSeq),
				InstrumentID: id,
				Direction:    approved.Direction,
				Quantity:     approved.Quantity,
				Price:        obs.Price,
				Timestamp:    obs.Timestamp,
			}
			if _, err := led.ApplyFill(fill); err != nil {
				// The risk gate should make this unreachable; if it happens
				// the run's accounting is untrustworthy.
				return nil, fmt.Errorf("applying fill %s: %w", fill.OrderRef, err)
			}
			report.TradeLog = append(report.TradeLog, TradeRecord{Order: *approved, Fill: fill})
		}

		equity := led.Snapshot().Equity(lastPrices)
		report.EquityCurve = append(report.EquityCurve, EquityPoint{Timestamp: obs.Timestamp, Equity: equity})
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak; dd > report.MaxDrawdown {
				report.MaxDrawdown = dd
			}
		}
	}

	final := led.Snapshot()
	report.FinalEquity = final.Equity(lastPrices)
	report.RealizedPnL = final.RealizedPnL

	r.log.Info("backtest complete",
		"observations", len(timeline),
		"trades", len(report.TradeLog),
		"final_equity", report.FinalEquity,
		"max_drawdown", report.MaxDrawdown,
	)
	return report, nil
}

// buildTimeline validates each instrument's observations and merges the
// valid lanes into one sequence ordered by timestamp, ties broken by
// instrument_id ascending so replays are reproducible.
func (r *Runner) buildTimeline(obsByInstrument map[string][]domain.PriceObservation, report *Report) []domain.PriceObservation {
	var timeline []domain.PriceObservation

	ids := make([]string, 0, len(obsByInstrument))
	for id := range obsByInstrument {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := validateLane(id, obsByInstrument[id]); err != nil {
			r.log.Warn("dropping instrument from run", "instrument", id, "err", err)
			report.InstrumentErrors[id] = err.Error()
			continue
		}
		timeline = append(timeline, obsByInstrument[id]...)
	}

	sort.SliceStable(timeline, func(i, j int) bool {
		if !timeline[i].Timestamp.Equal(timeline[j].Timestamp) {
			return timeline[i].Timestamp.Before(timeline[j].Timestamp)
		}
		return timeline[i].InstrumentID < timeline[j].InstrumentID
	})
	return timeline
}

func validateLane(id string, obs []domain.PriceObservation) error {
	probe := domain.NewPriceSeries(id)
	for i, o := range obs {
		if o.Price <= 0 {
			return fmt.Errorf("observation %d: non-positive price %.4f", i, o.Price)
		}
		if err := probe.Append(o); err != nil {
			return fmt.Errorf("observation %d: %w", i, err)
		}
	}
	return nil
}
