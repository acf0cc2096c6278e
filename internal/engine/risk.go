package engine

import (
	"fmt"
	"math"
	"time"

	"tradewind/internal/domain"
)

// Rejection reason codes. A Rejection is a normal outcome of risk
// validation, never an error.
const (
	ReasonInsufficientCash = "INSUFFICIENT_CASH"
	ReasonExposureCap      = "EXPOSURE_CAP"
	ReasonNoAction         = "NO_ACTION"
)

// Names of the risk rules that can bound an approved order, recorded in
// ApprovedOrder.BoundedBy.
const (
	BoundStopLoss      = "STOP_LOSS"
	BoundTakeProfit    = "TAKE_PROFIT"
	BoundPositionValue = "MAX_POSITION_VALUE"
	BoundExposure      = "MAX_PORTFOLIO_EXPOSURE"
)

// RiskLimits configures pre-trade risk validation. A zero value disables the
// corresponding rule.
//
//   - MaxPositionValue: cap on total exposure per instrument, in cash terms.
//   - MaxPortfolioExposurePct: cap on aggregate position value as a fraction
//     of total equity (e.g. 0.80 for 80%).
//   - StopLossPct: force a full exit when a position's unrealized loss
//     exceeds this fraction of average cost (e.g. 0.05 for 5%).
//   - TakeProfitPct: same, for unrealized gains.
type RiskLimits struct {
	MaxPositionValue        float64 `json:"max_position_value" yaml:"max_position_value"`
	MaxPortfolioExposurePct float64 `json:"max_portfolio_exposure_pct" yaml:"max_portfolio_exposure_pct"`
	StopLossPct             float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	TakeProfitPct           float64 `json:"take_profit_pct" yaml:"take_profit_pct"`
}

// Rejection is the non-approval outcome of risk validation. It carries a
// machine-readable reason code and a human-readable detail for logs.
type Rejection struct {
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

func (r *Rejection) String() string {
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

// Review is one risk-validation request: the intent proposed by the strategy
// (nil when the policy held), the instrument under evaluation, and the market
// context the limits are applied against.
type Review struct {
	Intent       *domain.TradeIntent
	InstrumentID string
	Price        float64   // latest observed price for InstrumentID
	AsOf         time.Time // observation clock, used for forced-exit intents
	Portfolio    domain.Portfolio
	Prices       map[string]float64 // latest prices for exposure marking
}

// RiskManager validates trade intents against the configured limits. It only
// inspects and advises; portfolio mutation happens exclusively through fill
// application in the ledger.
type RiskManager struct {
	limits RiskLimits
}

// NewRiskManager creates a RiskManager with the given limits.
func NewRiskManager(limits RiskLimits) *RiskManager {
	return &RiskManager{limits: limits}
}

// Limits returns the configured limits.
func (rm *RiskManager) Limits() RiskLimits { return rm.limits }

// Validate runs the fixed validation sequence and returns exactly one of an
// approved order or a rejection:
//
//  1. Stop-loss/take-profit override. A held position breaching either
//     threshold replaces the incoming intent with a forced full exit,
//     regardless of what the strategy proposed.
//  2. Cash sufficiency for BUY. An intent whose full notional exceeds
//     available cash is rejected outright.
//  3. Per-instrument position-value cap. Quantity is clamped downward so the
//     resulting position value fits the cap; rejected only when no quantity
//     fits.
//  4. Aggregate exposure cap, with the same clamp-down behavior.
//
// Validate is a pure function of its Review; it never mutates the portfolio.
func (rm *RiskManager) Validate(rv Review) (*domain.ApprovedOrder, *Rejection) {
	if forced := rm.forcedExit(rv); forced != nil {
		return forced, nil
	}

	intent := rv.Intent
	if intent == nil {
		return nil, &Rejection{Reason: ReasonNoAction, Detail: "no trade intent"}
	}
	if intent.Quantity <= 0 {
		return nil, &Rejection{Reason: ReasonNoAction, Detail: "zero-quantity intent"}
	}

	if intent.Direction == domain.DirectionSell {
		// Sells reduce exposure and release cash; the only bound is the
		// held quantity (long-only, no naked shorts).
		held := rv.Portfolio.Positions[intent.InstrumentID].Quantity
		if held <= 0 {
			return nil, &Rejection{Reason: ReasonNoAction, Detail: "sell against no position"}
		}
		approved := &domain.ApprovedOrder{TradeIntent: *intent}
		if approved.Quantity > held {
			approved.Quantity = held
		}
		return approved, nil
	}

	// BUY path.
	notional := float64(intent.Quantity) * rv.Price
	if notional > rv.Portfolio.Cash {
		return nil, &Rejection{
			Reason: ReasonInsufficientCash,
			Detail: fmt.Sprintf("need %.2f, cash %.2f", notional, rv.Portfolio.Cash),
		}
	}

	approved := &domain.ApprovedOrder{TradeIntent: *intent}

	if limit := rm.limits.MaxPositionValue; limit > 0 {
		held := rv.Portfolio.Positions[intent.InstrumentID].MarketValue(rv.Price)
		fit := quantityWithin(limit-held, rv.Price)
		if fit <= 0 {
			return nil, &Rejection{
				Reason: ReasonExposureCap,
				Detail: fmt.Sprintf("position value %.2f at cap %.2f", held, limit),
			}
		}
		if fit < approved.Quantity {
			approved.Quantity = fit
			approved.BoundedBy = BoundPositionValue
		}
	}

	if pct := rm.limits.MaxPortfolioExposurePct; pct > 0 {
		equity := rv.Portfolio.Equity(rv.Prices)
		headroom := pct*equity - rv.Portfolio.Exposure(rv.Prices)
		fit := quantityWithin(headroom, rv.Price)
		if fit <= 0 {
			return nil, &Rejection{
				Reason: ReasonExposureCap,
				Detail: fmt.Sprintf("portfolio exposure at %.0f%% cap", pct*100),
			}
		}
		if fit < approved.Quantity {
			approved.Quantity = fit
			approved.BoundedBy = BoundExposure
		}
	}

	return approved, nil
}

// forcedExit returns a full-position SELL when the instrument under review
// has breached its stop-loss or take-profit threshold, or nil otherwise.
func (rm *RiskManager) forcedExit(rv Review) *domain.ApprovedOrder {
	pos, ok := rv.Portfolio.Positions[rv.InstrumentID]
	if !ok || pos.Quantity <= 0 || pos.AverageCost <= 0 || rv.Price <= 0 {
		return nil
	}

	var bound, detail string
	if pct := rm.limits.StopLossPct; pct > 0 && rv.Price < pos.AverageCost*(1-pct) {
		bound = BoundStopLoss
		detail = fmt.Sprintf("price %.2f below stop %.2f", rv.Price, pos.AverageCost*(1-pct))
	} else if pct := rm.limits.TakeProfitPct; pct > 0 && rv.Price > pos.AverageCost*(1+pct) {
		bound = BoundTakeProfit
		detail = fmt.Sprintf("price %.2f above target %.2f", rv.Price, pos.AverageCost*(1+pct))
	} else {
		return nil
	}

	return &domain.ApprovedOrder{
		TradeIntent: domain.TradeIntent{
			InstrumentID: rv.InstrumentID,
			Direction:    domain.DirectionSell,
			Quantity:     pos.Quantity,
			Reason:       detail,
			GeneratedAt:  rv.AsOf,
		},
		BoundedBy: bound,
	}
}

// quantityWithin returns the largest whole quantity whose notional at price
// fits within value, or 0 when none does.
func quantityWithin(value, price float64) int64 {
	if price <= 0 || value <= 0 {
		return 0
	}
	return int64(math.Floor(value / price))
}
