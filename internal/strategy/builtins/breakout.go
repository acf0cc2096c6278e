package builtins

import (
	"fmt"

	"tradewind/internal/domain"
	"tradewind/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Policy = (*Breakout)(nil)

// Breakout buys when the latest price breaks above the highest high of the
// preceding lookback window on elevated volume, and exits when the price
// falls a fixed fraction below the position's average cost.
type Breakout struct {
	lookback    int
	volumeRatio float64 // latest volume must exceed ratio * lookback average
	stopPct     float64 // exit when price < avg cost * (1 - stopPct)
}

// NewBreakout creates a breakout policy. volumeRatio of 1.5 means the breakout
// bar must trade at least 1.5x the average volume of the lookback window.
func NewBreakout(lookback int, volumeRatio, stopPct float64) *Breakout {
	return &Breakout{
		lookback:    lookback,
		volumeRatio: volumeRatio,
		stopPct:     stopPct,
	}
}

// Name returns "breakout".
func (b *Breakout) Name() string {
	return "breakout"
}

// Decide implements strategy.Policy.
func (b *Breakout) Decide(dc strategy.Context) *domain.TradeIntent {
	// Exit check does not need a warmed-up window.
	if dc.Position.Quantity > 0 {
		stop := dc.Position.AverageCost * (1 - b.stopPct)
		if dc.Price < stop {
			return &domain.TradeIntent{
				InstrumentID: dc.Series.InstrumentID(),
				Direction:    domain.DirectionSell,
				Quantity:     strategy.SellQuantity(dc.Position.Quantity, dc.Position),
				Reason:       fmt.Sprintf("price %.2f below breakout stop %.2f", dc.Price, stop),
				GeneratedAt:  dc.Timestamp,
			}
		}
		return nil
	}

	// Need the breakout bar plus a full lookback window behind it.
	prices := dc.Series.Prices(b.lookback + 1)
	volumes := dc.Series.Volumes(b.lookback + 1)
	if prices == nil || volumes == nil {
		return nil
	}
	window := prices[:b.lookback]

	resistance := window[0]
	for _, p := range window[1:] {
		if p > resistance {
			resistance = p
		}
	}
	if dc.Price <= resistance {
		return nil
	}

	avgVol := 0.0
	for _, v := range volumes[:b.lookback] {
		avgVol += float64(v)
	}
	avgVol /= float64(b.lookback)
	if avgVol > 0 && float64(volumes[b.lookback]) < b.volumeRatio*avgVol {
		return nil
	}

	if op := dc.Opinion; op != nil && op.Stance == domain.StanceSell {
		return nil
	}
	return &domain.TradeIntent{
		InstrumentID: dc.Series.InstrumentID(),
		Direction:    domain.DirectionBuy,
		Quantity:     dc.DefaultQuantity,
		Reason:       fmt.Sprintf("price %.2f broke %d-period high %.2f on volume", dc.Price, b.lookback, resistance),
		GeneratedAt:  dc.Timestamp,
	}
}
