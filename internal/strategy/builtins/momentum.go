// Package builtins provides the built-in decision policies that ship with
// the tradewind platform.
package builtins

import (
	"fmt"

	"tradewind/internal/domain"
	"tradewind/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Policy = (*Momentum)(nil)

// Momentum is the baseline policy: enter on an upward moving-average
// crossover, exit the full position on a downward one. A SELL-stance opinion
// suppresses the entry; opinions never block an exit and never change sizing.
type Momentum struct{}

// NewMomentum creates the momentum policy.
func NewMomentum() *Momentum {
	return &Momentum{}
}

// Name returns "momentum".
func (m *Momentum) Name() string {
	return "momentum"
}

// Decide implements strategy.Policy.
func (m *Momentum) Decide(dc strategy.Context) *domain.TradeIntent {
	switch dc.Signal.Kind {
	case domain.SignalCrossUp:
		if dc.Position.Quantity > 0 {
			return nil // already long
		}
		if op := dc.Opinion; op != nil && op.Stance == domain.StanceSell {
			return nil // contradicting advisory suppresses the entry
		}
		return &domain.TradeIntent{
			InstrumentID: dc.Series.InstrumentID(),
			Direction:    domain.DirectionBuy,
			Quantity:     dc.DefaultQuantity,
			Reason:       fmt.Sprintf("ma(%d) crossed above ma(%d)", dc.Signal.ShortWindow, dc.Signal.LongWindow),
			GeneratedAt:  dc.Timestamp,
		}

	case domain.SignalCrossDown:
		if dc.Position.Quantity <= 0 {
			return nil // nothing to exit, no naked shorts
		}
		return &domain.TradeIntent{
			InstrumentID: dc.Series.InstrumentID(),
			Direction:    domain.DirectionSell,
			Quantity:     dc.Position.Quantity,
			Reason:       fmt.Sprintf("ma(%d) crossed below ma(%d)", dc.Signal.ShortWindow, dc.Signal.LongWindow),
			GeneratedAt:  dc.Timestamp,
		}
	}
	return nil
}
