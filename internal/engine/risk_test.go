package engine

import (
	"testing"
	"time"

	"tradewind/internal/domain"
)

var testTime = time.Date(2025, 6, 2, 14, 35, 0, 0, time.UTC)

func buyIntent(id string, qty int64) *domain.TradeIntent {
	return &domain.TradeIntent{
		InstrumentID: id,
		Direction:    domain.DirectionBuy,
		Quantity:     qty,
		Reason:       "test entry",
		GeneratedAt:  testTime,
	}
}

func TestValidateApprovesUncappedBuy(t *testing.T) {
	rm := NewRiskManager(RiskLimits{})
	pf := domain.Portfolio{Cash: 10000, Positions: map[string]domain.Position{}}

	approved, rej := rm.Validate(Review{
		Intent:       buyIntent("AAPL", 10),
		InstrumentID: "AAPL",
		Price:        110,
		AsOf:         testTime,
		Portfolio:    pf,
		Prices:       map[string]float64{"AAPL": 110},
	})
	if rej != nil {
		t.Fatalf("Validate rejected: %s", rej)
	}
	if approved.Quantity != 10 {
		t.Errorf("Quantity = %d, want 10 unchanged", approved.Quantity)
	}
	if approved.BoundedBy != "" {
		t.Errorf("BoundedBy = %q, want empty", approved.BoundedBy)
	}
}

func TestValidateRejectsInsufficientCash(t *testing.T) {
	rm := NewRiskManager(RiskLimits{})
	pf := domain.Portfolio{Cash: 500, Positions: map[string]domain.Position{}}

	approved, rej := rm.Validate(Review{
		Intent:       buyIntent("AAPL", 10),
		InstrumentID: "AAPL",
		Price:        110,
		AsOf:         testTime,
		Portfolio:    pf,
		Prices:       map[string]float64{"AAPL": 110},
	})
	if approved != nil {
		t.Fatalf("Validate approved %+v, want rejection", approved)
	}
	if rej.Reason != ReasonInsufficientCash {
		t.Errorf("Reason = %s, want %s", rej.Reason, ReasonInsufficientCash)
	}
}

func TestValidateStopLossOverridesIntent(t *testing.T) {
	rm := NewRiskManager(RiskLimits{StopLossPct: 0.05})
	pf := domain.Portfolio{
		Cash: 1000,
		Positions: map[string]domain.Position{
			"AAPL": {InstrumentID: "AAPL", Quantity: 10, AverageCost: 100},
		},
	}

	// A 10% loss must force a full exit even when the strategy proposed a buy.
	approved, rej := rm.Validate(Review{
		Intent:       buyIntent("AAPL", 5),
		InstrumentID: "AAPL",
		Price:        90,
		AsOf:         testTime,
		Portfolio:    pf,
		Prices:       map[string]float64{"AAPL": 90},
	})
	if rej != nil {
		t.Fatalf("Validate rejected: %s", rej)
	}
	if approved.Direction != domain.DirectionSell {
		t.Errorf("Direction = %s, want SELL", approved.Direction)
	}
	if approved.Quantity != 10 {
		t.Errorf("Quantity = %d, want full position 10", approved.Quantity)
	}
	if approved.BoundedBy != BoundStopLoss {
		t.Errorf("BoundedBy = %q, want %q", approved.BoundedBy, BoundStopLoss)
	}
}

func TestValidateStopLossFiresWithNilIntent(t *testing.T) {
	rm := NewRiskManager(RiskLimits{StopLossPct: 0.05})
	pf := domain.Portfolio{
		Cash: 1000,
		Positions: map[string]domain.Position{
			"AAPL": {InstrumentID: "AAPL", Quantity: 10, AverageCost: 100},
		},
	}

	approved, rej := rm.Validate(Review{
		InstrumentID: "AAPL",
		Price:        90,
		AsOf:         testTime,
		Portfolio:    pf,
		Prices:       map[string]float64{"AAPL": 90},
	})
	if rej != nil {
		t.Fatalf("Validate rejected: %s", rej)
	}
	if approved.Direction != domain.DirectionSell || approved.Quantity != 10 {
		t.Errorf("forced exit = %+v, want SELL 10", approved)
	}
	if !approved.GeneratedAt.Equal(testTime) {
		t.Errorf("GeneratedAt = %s, want observation clock %s", approved.GeneratedAt, testTime)
	}
}

func TestValidateTakeProfitForcesExit(t *testing.T) {
	rm := NewRiskManager(RiskLimits{TakeProfitPct: 0.10})
	pf := domain.Portfolio{
		Cash: 1000,
		Positions: map[string]domain.Position{
			"AAPL": {InstrumentID: "AAPL", Quantity: 10, AverageCost: 100},
		},
	}

	approved, rej := rm.Validate(Review{
		InstrumentID: "AAPL",
		Price:        115,
		AsOf:         testTime,
		Portfolio:    pf,
		Prices:       map[string]float64{"AAPL": 115},
	})
	if rej != nil {
		t.Fatalf("Validate rejected: %s", rej)
	}
	if approved.BoundedBy != BoundTakeProfit {
		t.Errorf("BoundedBy = %q, want %q", approved.BoundedBy, BoundTakeProfit)
	}
}

func TestValidateNoIntentIsNoAction(t *testing.T) {
	rm := NewRiskManager(RiskLimits{})
	pf := domain.Portfolio{Cash: 1000, Positions: map[string]domain.Position{}}

	approved, rej := rm.Validate(Review{
		InstrumentID: "AAPL",
		Price:        100,
		AsOf:         testTime,
		Portfolio:    pf,
		Prices:       map[string]float64{"AAPL": 100},
	})
	if approved != nil {
		t.Fatalf("Validate approved %+v, want NO_ACTION", approved)
	}
	if rej.Reason != ReasonNoAction {
		t.Errorf("Reason = %s, want %s", rej.Reason, ReasonNoAction)
	}
}

func TestValidateClampsToPositionValueCap(t *testing.T) {
	rm := NewRiskManager(RiskLimits{MaxPositionValue: 1500})
	pf := domain.Portfolio{
		Cash: 10000,
		Positions: map[string]domain.Position{
			"AAPL": {InstrumentID: "AAPL", Quantity: 5, AverageCost: 100},
		},
	}

	// Held value 5*100=500, cap 1500, so 10 more fit at price 100.
	approved, rej := rm.Validate(Review{
		Intent:       buyIntent("AAPL", 20),
		InstrumentID: "AAPL",
		Price:        100,
		AsOf:         testTime,
		Portfolio:    pf,
		Prices:       map[string]float64{"AAPL": 100},
	})
	if rej != nil {
		t.Fatalf("Validate rejected: %s", rej)
	}
	if approved.Quantity != 10 {
		t.Errorf("Quantity = %d, want clamped 10", approved.Quantity)
	}
	if approved.BoundedBy != BoundPositionValue {
		t.Errorf("BoundedBy = %q, want %q", approved.BoundedBy, BoundPositionValue)
	}
}

func TestValidateRejectsWhenNothingFitsCap(t *testing.T) {
	rm := NewRiskManager(RiskLimits{MaxPositionValue: 500})
	pf := domain.Portfolio{
		Cash: 10000,
		Positions: map[string]domain.Position{
			"AAPL": {InstrumentID: "AAPL", Quantity: 5, AverageCost: 100},
		},
	}

	approved, rej := rm.Validate(Review{
		Intent:       buyIntent("AAPL", 1),
		InstrumentID: "AAPL",
		Price:        100,
		AsOf:         testTime,
		Portfolio:    pf,
		Prices:       map[string]float64{"AAPL": 100},
	})
	if approved != nil {
		t.Fatalf("Validate approved %+v, want EXPOSURE_CAP", approved)
	}
	if rej.Reason != ReasonExposureCap {
		t.Errorf("Reason = %s, want %s", rej.Reason, ReasonExposureCap)
	}
}

func TestValidateAggregateExposureClamp(t *testing.T) {
	// Equity = 10000 cash + 4000 positions = 14000; 50% cap allows 7000
	// exposure, headroom 3000, so 30 shares at 100 fit.
	rm := NewRiskManager(RiskLimits{MaxPortfolioExposurePct: 0.50})
	pf := domain.Portfolio{
		Cash: 10000,
		Positions: map[string]domain.Position{
			"MSFT": {InstrumentID: "MSFT", Quantity: 40, AverageCost: 100},
		},
	}
	prices := map[string]float64{"MSFT": 100, "AAPL": 100}

	approved, rej := rm.Validate(Review{
		Intent:       buyIntent("AAPL", 50),
		InstrumentID: "AAPL",
		Price:        100,
		AsOf:         testTime,
		Portfolio:    pf,
		Prices:       prices,
	})
	if rej != nil {
		t.Fatalf("Validate rejected: %s", rej)
	}
	if approved.Quantity != 30 {
		t.Errorf("Quantity = %d, want clamped 30", approved.Quantity)
	}
	if approved.BoundedBy != BoundExposure {
		t.Errorf("BoundedBy = %q, want %q", approved.BoundedBy, BoundExposure)
	}
}

func TestValidateSellClampsToHeld(t *testing.T) {
	rm := NewRiskManager(RiskLimits{})
	pf := domain.Portfolio{
		Cash: 1000,
		Positions: map[string]domain.Position{
			"AAPL": {InstrumentID: "AAPL", Quantity: 10, AverageCost: 100},
		},
	}

	approved, rej := rm.Validate(Review{
		Intent: &domain.TradeIntent{
			InstrumentID: "AAPL",
			Direction:    domain.DirectionSell,
			Quantity:     25,
			GeneratedAt:  testTime,
		},
		InstrumentID: "AAPL",
		Price:        100,
		AsOf:         testTime,
		Portfolio:    pf,
		Prices:       map[string]float64{"AAPL": 100},
	})
	if rej != nil {
		t.Fatalf("Validate rejected: %s", rej)
	}
	if approved.Quantity != 10 {
		t.Errorf("Quantity = %d, want clamped to held 10", approved.Quantity)
	}
}
