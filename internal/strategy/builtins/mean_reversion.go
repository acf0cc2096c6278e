package builtins

import (
	"fmt"
	"math"

	"tradewind/internal/domain"
	"tradewind/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Policy = (*MeanReversion)(nil)

// MeanReversion buys when the latest price sits far below its recent mean and
// exits once it has reverted far above it, measured in standard deviations
// over a lookback window.
type MeanReversion struct {
	lookback  int
	threshold float64 // z-score magnitude that triggers a trade
}

// NewMeanReversion creates a mean-reversion policy with the given lookback
// window and z-score threshold.
func NewMeanReversion(lookback int, threshold float64) *MeanReversion {
	return &MeanReversion{
		lookback:  lookback,
		threshold: threshold,
	}
}

// Name returns "mean-reversion".
func (m *MeanReversion) Name() string {
	return "mean-reversion"
}

// Decide implements strategy.Policy.
func (m *MeanReversion) Decide(dc strategy.Context) *domain.TradeIntent {
	prices := dc.Series.Prices(m.lookback)
	if prices == nil {
		return nil // pre-warmup
	}

	mean, std := meanStd(prices)
	if std == 0 {
		return nil
	}
	z := (dc.Price - mean) / std

	switch {
	case z < -m.threshold && dc.Position.Quantity == 0:
		if op := dc.Opinion; op != nil && op.Stance == domain.StanceSell {
			return nil
		}
		return &domain.TradeIntent{
			InstrumentID: dc.Series.InstrumentID(),
			Direction:    domain.DirectionBuy,
			Quantity:     dc.DefaultQuantity,
			Reason:       fmt.Sprintf("price %.2f below %d-period mean %.2f (z=%.2f)", dc.Price, m.lookback, mean, z),
			GeneratedAt:  dc.Timestamp,
		}

	case z > m.threshold && dc.Position.Quantity > 0:
		return &domain.TradeIntent{
			InstrumentID: dc.Series.InstrumentID(),
			Direction:    domain.DirectionSell,
			Quantity:     strategy.SellQuantity(dc.Position.Quantity, dc.Position),
			Reason:       fmt.Sprintf("price %.2f above %d-period mean %.2f (z=%.2f)", dc.Price, m.lookback, mean, z),
			GeneratedAt:  dc.Timestamp,
		}
	}
	return nil
}

// meanStd returns the arithmetic mean and population standard deviation.
func meanStd(xs []float64) (float64, float64) {
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return mean, math.Sqrt(variance)
}
