// Package domain defines the core data model shared by every component:
// price observations and series, indicator signals, advisory opinions, trade
// intents, approved orders, fills, positions, and the portfolio aggregate.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Enumerations
// ---------------------------------------------------------------------------

// Direction is the side of a trade.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Stance is the advisory recommendation carried by an Opinion.
type Stance string

const (
	StanceBuy  Stance = "BUY"
	StanceSell Stance = "SELL"
	StanceHold Stance = "HOLD"
)

// SignalKind identifies the technical event detected by the indicator engine.
type SignalKind string

const (
	SignalNone      SignalKind = "NONE"
	SignalCrossUp   SignalKind = "MA_CROSS_UP"
	SignalCrossDown SignalKind = "MA_CROSS_DOWN"
)

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

// PriceObservation is a single quoted price for one instrument. Observations
// are immutable once recorded.
type PriceObservation struct {
	InstrumentID string    `json:"instrument_id"`
	Timestamp    time.Time `json:"timestamp"`
	Price        float64   `json:"price"`
	Volume       int64     `json:"volume"`
}

// Series append errors.
var (
	ErrOutOfOrder         = errors.New("observation timestamp not after last")
	ErrDuplicateTimestamp = errors.New("duplicate observation timestamp")
	ErrInstrumentMismatch = errors.New("observation instrument does not match series")
)

// PriceSeries is an append-only, timestamp-ascending sequence of observations
// for a single instrument.
type PriceSeries struct {
	instrumentID string
	obs          []PriceObservation
}

// NewPriceSeries creates an empty series for the given instrument.
func NewPriceSeries(instrumentID string) *PriceSeries {
	return &PriceSeries{instrumentID: instrumentID}
}

// InstrumentID returns the instrument this series tracks.
func (s *PriceSeries) InstrumentID() string { return s.instrumentID }

// Len returns the number of observations in the series.
func (s *PriceSeries) Len() int { return len(s.obs) }

// At returns the i-th observation (oldest first).
func (s *PriceSeries) At(i int) PriceObservation { return s.obs[i] }

// Last returns the most recent observation. The second return value is false
// when the series is empty.
func (s *PriceSeries) Last() (PriceObservation, bool) {
	if len(s.obs) == 0 {
		return PriceObservation{}, false
	}
	return s.obs[len(s.obs)-1], true
}

// Append adds an observation to the series. Observations must arrive in
// strictly ascending timestamp order; a duplicate timestamp for the same
// instrument is rejected.
func (s *PriceSeries) Append(o PriceObservation) error {
	if o.InstrumentID != s.instrumentID {
		return fmt.Errorf("%w: series %q, observation %q", ErrInstrumentMismatch, s.instrumentID, o.InstrumentID)
	}
	if last, ok := s.Last(); ok {
		if o.Timestamp.Equal(last.Timestamp) {
			return fmt.Errorf("%w: %s at %s", ErrDuplicateTimestamp, o.InstrumentID, o.Timestamp.Format(time.RFC3339))
		}
		if o.Timestamp.Before(last.Timestamp) {
			return fmt.Errorf("%w: %s before %s", ErrOutOfOrder, o.Timestamp.Format(time.RFC3339), last.Timestamp.Format(time.RFC3339))
		}
	}
	s.obs = append(s.obs, o)
	return nil
}

// Prices returns the closing prices of the last n observations, oldest first.
// It returns nil when fewer than n observations exist.
func (s *PriceSeries) Prices(n int) []float64 {
	if n <= 0 || len(s.obs) < n {
		return nil
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = s.obs[len(s.obs)-n+i].Price
	}
	return out
}

// Volumes returns the volumes of the last n observations, oldest first, or
// nil when fewer than n observations exist.
func (s *PriceSeries) Volumes(n int) []int64 {
	if n <= 0 || len(s.obs) < n {
		return nil
	}
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		out[i] = s.obs[len(s.obs)-n+i].Volume
	}
	return out
}

// ---------------------------------------------------------------------------
// Signals and opinions
// ---------------------------------------------------------------------------

// Signal is a derived technical-indicator event. Signals are recomputed per
// observation and always reproducible from the series; they are never
// authoritative state.
type Signal struct {
	Kind        SignalKind `json:"kind"`
	ShortWindow int        `json:"short_window"`
	LongWindow  int        `json:"long_window"`
	Value       float64    `json:"value"` // short MA minus long MA at the current observation
}

// Opinion is a qualitative recommendation from an advisory source. It is an
// untrusted input: it may suppress a trade but never forces one, and it never
// mutates the portfolio.
type Opinion struct {
	InstrumentID string  `json:"instrument_id"`
	Stance       Stance  `json:"stance"`
	TargetPrice  float64 `json:"target_price"`
	Source       string  `json:"source"`
	Confidence   float64 `json:"confidence"`
}

// ---------------------------------------------------------------------------
// Trading lifecycle
// ---------------------------------------------------------------------------

// TradeIntent is an unvalidated proposed trade produced by a strategy policy.
type TradeIntent struct {
	InstrumentID string    `json:"instrument_id"`
	Direction    Direction `json:"direction"`
	Quantity     int64     `json:"quantity"`
	Reason       string    `json:"reason"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// ApprovedOrder is a TradeIntent that passed risk validation. Quantity may
// have been clamped; BoundedBy names the risk rule that bounded it, or is
// empty when no rule applied.
type ApprovedOrder struct {
	TradeIntent
	BoundedBy string `json:"bounded_by,omitempty"`
}

// Fill is the immutable record of an executed (or simulated) trade.
type Fill struct {
	OrderRef     string    `json:"order_ref"`
	InstrumentID string    `json:"instrument_id"`
	Direction    Direction `json:"direction"`
	Quantity     int64     `json:"quantity"`
	Price        float64   `json:"price"`
	Timestamp    time.Time `json:"timestamp"`
}

// Position is a holding in one instrument. Quantity is never negative in
// long-only mode. Positions are mutated only by fill application.
type Position struct {
	InstrumentID string  `json:"instrument_id"`
	Quantity     int64   `json:"quantity"`
	AverageCost  float64 `json:"average_cost"`
}

// MarketValue returns the position's value at the given price.
func (p Position) MarketValue(price float64) float64 {
	return float64(p.Quantity) * price
}

// Portfolio is a read-only snapshot of the ledger state: cash, positions, and
// realized P&L. Total equity is recomputed from current prices, never stored.
type Portfolio struct {
	Cash        float64             `json:"cash"`
	Positions   map[string]Position `json:"positions"`
	RealizedPnL float64             `json:"realized_pnl"`
}

// Exposure returns the summed market value of all positions using the given
// prices. A position with no quoted price contributes its cost basis, so a
// stale quote feed can only overstate exposure relative to a missing one.
func (p Portfolio) Exposure(prices map[string]float64) float64 {
	total := 0.0
	for id, pos := range p.Positions {
		price, ok := prices[id]
		if !ok {
			price = pos.AverageCost
		}
		total += pos.MarketValue(price)
	}
	return total
}

// Equity returns cash plus the market value of all positions.
func (p Portfolio) Equity(prices map[string]float64) float64 {
	return p.Cash + p.Exposure(prices)
}
