package builtins

import (
	"testing"
	"time"

	"tradewind/internal/domain"
	"tradewind/internal/strategy"
)

func seriesOf(t *testing.T, id string, prices []float64, volumes []int64) *domain.PriceSeries {
	t.Helper()
	s := domain.NewPriceSeries(id)
	base := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	for i, p := range prices {
		var v int64 = 1000
		if volumes != nil {
			v = volumes[i]
		}
		err := s.Append(domain.PriceObservation{
			InstrumentID: id,
			Timestamp:    base.Add(time.Duration(i) * time.Minute),
			Price:        p,
			Volume:       v,
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return s
}

func ctxFor(s *domain.PriceSeries) strategy.Context {
	last, _ := s.Last()
	return strategy.Context{
		Series:          s,
		Price:           last.Price,
		Timestamp:       last.Timestamp,
		DefaultQuantity: 10,
	}
}

// --------------------------------------------------------------------------
// Momentum
// --------------------------------------------------------------------------

func TestMomentumEntersOnCrossUp(t *testing.T) {
	s := seriesOf(t, "AAPL", []float64{100, 100, 100, 100, 100, 110}, nil)
	dc := ctxFor(s)
	dc.Signal = domain.Signal{Kind: domain.SignalCrossUp, ShortWindow: 2, LongWindow: 5}

	intent := NewMomentum().Decide(dc)
	if intent == nil {
		t.Fatal("Decide returned nil, want BUY intent")
	}
	if intent.Direction != domain.DirectionBuy {
		t.Errorf("Direction = %s, want BUY", intent.Direction)
	}
	if intent.Quantity != 10 {
		t.Errorf("Quantity = %d, want 10", intent.Quantity)
	}
	if intent.InstrumentID != "AAPL" {
		t.Errorf("InstrumentID = %s, want AAPL", intent.InstrumentID)
	}
	if !intent.GeneratedAt.Equal(dc.Timestamp) {
		t.Errorf("GeneratedAt = %s, want observation timestamp %s", intent.GeneratedAt, dc.Timestamp)
	}
}

func TestMomentumSkipsEntryWhenAlreadyLong(t *testing.T) {
	s := seriesOf(t, "AAPL", []float64{100, 100, 100, 100, 100, 110}, nil)
	dc := ctxFor(s)
	dc.Signal = domain.Signal{Kind: domain.SignalCrossUp, ShortWindow: 2, LongWindow: 5}
	dc.Position = domain.Position{InstrumentID: "AAPL", Quantity: 10, AverageCost: 100}

	if intent := NewMomentum().Decide(dc); intent != nil {
		t.Errorf("Decide = %+v, want nil when already long", intent)
	}
}

func TestMomentumSellOpinionSuppressesEntry(t *testing.T) {
	s := seriesOf(t, "AAPL", []float64{100, 100, 100, 100, 100, 110}, nil)
	dc := ctxFor(s)
	dc.Signal = domain.Signal{Kind: domain.SignalCrossUp, ShortWindow: 2, LongWindow: 5}
	dc.Opinion = &domain.Opinion{InstrumentID: "AAPL", Stance: domain.StanceSell, Source: "news"}

	if intent := NewMomentum().Decide(dc); intent != nil {
		t.Errorf("Decide = %+v, want nil under SELL opinion", intent)
	}
}

func TestMomentumExitsFullPositionOnCrossDown(t *testing.T) {
	s := seriesOf(t, "AAPL", []float64{110, 110, 110, 110, 110, 100}, nil)
	dc := ctxFor(s)
	dc.Signal = domain.Signal{Kind: domain.SignalCrossDown, ShortWindow: 2, LongWindow: 5}
	dc.Position = domain.Position{InstrumentID: "AAPL", Quantity: 7, AverageCost: 105}
	// A SELL opinion must never block an exit.
	dc.Opinion = &domain.Opinion{InstrumentID: "AAPL", Stance: domain.StanceSell, Source: "news"}

	intent := NewMomentum().Decide(dc)
	if intent == nil {
		t.Fatal("Decide returned nil, want SELL intent")
	}
	if intent.Direction != domain.DirectionSell {
		t.Errorf("Direction = %s, want SELL", intent.Direction)
	}
	if intent.Quantity != 7 {
		t.Errorf("Quantity = %d, want full position 7", intent.Quantity)
	}
}

func TestMomentumHoldsWithoutSignal(t *testing.T) {
	s := seriesOf(t, "AAPL", []float64{100, 101, 102}, nil)
	dc := ctxFor(s)
	dc.Signal = domain.Signal{Kind: domain.SignalNone}

	if intent := NewMomentum().Decide(dc); intent != nil {
		t.Errorf("Decide = %+v, want nil on NONE signal", intent)
	}
}

func TestMomentumDeterministic(t *testing.T) {
	s := seriesOf(t, "AAPL", []float64{100, 100, 100, 100, 100, 110}, nil)
	dc := ctxFor(s)
	dc.Signal = domain.Signal{Kind: domain.SignalCrossUp, ShortWindow: 2, LongWindow: 5}

	p := NewMomentum()
	first := p.Decide(dc)
	second := p.Decide(dc)
	if first == nil || second == nil {
		t.Fatal("Decide returned nil")
	}
	if *first != *second {
		t.Errorf("repeated Decide differs: %+v vs %+v", *first, *second)
	}
}

// --------------------------------------------------------------------------
// MeanReversion
// --------------------------------------------------------------------------

func TestMeanReversionBuysBelowMean(t *testing.T) {
	// Mean of window is pulled up by the stable 100s; the 90 print sits well
	// below it in z-score terms.
	s := seriesOf(t, "MSFT", []float64{100, 101, 99, 100, 90}, nil)
	dc := ctxFor(s)

	intent := NewMeanReversion(5, 1.5).Decide(dc)
	if intent == nil {
		t.Fatal("Decide returned nil, want BUY intent")
	}
	if intent.Direction != domain.DirectionBuy {
		t.Errorf("Direction = %s, want BUY", intent.Direction)
	}
	if intent.Quantity != 10 {
		t.Errorf("Quantity = %d, want 10", intent.Quantity)
	}
}

func TestMeanReversionSellsAboveMean(t *testing.T) {
	s := seriesOf(t, "MSFT", []float64{100, 101, 99, 100, 110}, nil)
	dc := ctxFor(s)
	dc.Position = domain.Position{InstrumentID: "MSFT", Quantity: 10, AverageCost: 95}

	intent := NewMeanReversion(5, 1.5).Decide(dc)
	if intent == nil {
		t.Fatal("Decide returned nil, want SELL intent")
	}
	if intent.Direction != domain.DirectionSell {
		t.Errorf("Direction = %s, want SELL", intent.Direction)
	}
	if intent.Quantity != 10 {
		t.Errorf("Quantity = %d, want full position 10", intent.Quantity)
	}
}

func TestMeanReversionHoldsPreWarmup(t *testing.T) {
	s := seriesOf(t, "MSFT", []float64{100, 90}, nil)
	dc := ctxFor(s)

	if intent := NewMeanReversion(5, 1.5).Decide(dc); intent != nil {
		t.Errorf("Decide = %+v, want nil before warmup", intent)
	}
}

func TestMeanReversionHoldsOnFlatSeries(t *testing.T) {
	// Zero standard deviation must not divide by zero or trade.
	s := seriesOf(t, "MSFT", []float64{100, 100, 100, 100, 100}, nil)
	dc := ctxFor(s)

	if intent := NewMeanReversion(5, 1.5).Decide(dc); intent != nil {
		t.Errorf("Decide = %+v, want nil on flat series", intent)
	}
}

func TestMeanReversionSellOpinionSuppressesEntry(t *testing.T) {
	s := seriesOf(t, "MSFT", []float64{100, 101, 99, 100, 90}, nil)
	dc := ctxFor(s)
	dc.Opinion = &domain.Opinion{InstrumentID: "MSFT", Stance: domain.StanceSell, Source: "news"}

	if intent := NewMeanReversion(5, 1.5).Decide(dc); intent != nil {
		t.Errorf("Decide = %+v, want nil under SELL opinion", intent)
	}
}

// --------------------------------------------------------------------------
// Breakout
// --------------------------------------------------------------------------

func TestBreakoutBuysOnHighVolumeBreak(t *testing.T) {
	prices := []float64{100, 102, 101, 103, 102, 108}
	volumes := []int64{1000, 1000, 1000, 1000, 1000, 2500}
	s := seriesOf(t, "NVDA", prices, volumes)
	dc := ctxFor(s)

	intent := NewBreakout(5, 1.5, 0.05).Decide(dc)
	if intent == nil {
		t.Fatal("Decide returned nil, want BUY intent")
	}
	if intent.Direction != domain.DirectionBuy {
		t.Errorf("Direction = %s, want BUY", intent.Direction)
	}
}

func TestBreakoutRequiresVolumeSurge(t *testing.T) {
	prices := []float64{100, 102, 101, 103, 102, 108}
	volumes := []int64{1000, 1000, 1000, 1000, 1000, 1100}
	s := seriesOf(t, "NVDA", prices, volumes)
	dc := ctxFor(s)

	if intent := NewBreakout(5, 1.5, 0.05).Decide(dc); intent != nil {
		t.Errorf("Decide = %+v, want nil without volume surge", intent)
	}
}

func TestBreakoutIgnoresPriceUnderResistance(t *testing.T) {
	prices := []float64{100, 102, 101, 103, 102, 103}
	volumes := []int64{1000, 1000, 1000, 1000, 1000, 5000}
	s := seriesOf(t, "NVDA", prices, volumes)
	dc := ctxFor(s)

	if intent := NewBreakout(5, 1.5, 0.05).Decide(dc); intent != nil {
		t.Errorf("Decide = %+v, want nil at or under resistance", intent)
	}
}

func TestBreakoutStopsOutBelowAverageCost(t *testing.T) {
	s := seriesOf(t, "NVDA", []float64{100, 94}, nil)
	dc := ctxFor(s)
	dc.Position = domain.Position{InstrumentID: "NVDA", Quantity: 10, AverageCost: 100}

	intent := NewBreakout(5, 1.5, 0.05).Decide(dc)
	if intent == nil {
		t.Fatal("Decide returned nil, want stop SELL")
	}
	if intent.Direction != domain.DirectionSell {
		t.Errorf("Direction = %s, want SELL", intent.Direction)
	}
	if intent.Quantity != 10 {
		t.Errorf("Quantity = %d, want full position 10", intent.Quantity)
	}
}

func TestBreakoutHoldsAboveStop(t *testing.T) {
	s := seriesOf(t, "NVDA", []float64{100, 97}, nil)
	dc := ctxFor(s)
	dc.Position = domain.Position{InstrumentID: "NVDA", Quantity: 10, AverageCost: 100}

	if intent := NewBreakout(5, 1.5, 0.05).Decide(dc); intent != nil {
		t.Errorf("Decide = %+v, want nil above stop", intent)
	}
}
