package httpapi

import (
	"time"

	"tradewind/internal/domain"
)

// PortfolioResponse is the read-only portfolio snapshot served to dashboards.
type PortfolioResponse struct {
	Cash          float64            `json:"cash"`
	Positions     []PositionView     `json:"positions"`
	RealizedPnL   float64            `json:"realized_pnl"`
	UnrealizedPnL float64            `json:"unrealized_pnl"`
	Equity        float64            `json:"equity"`
	Prices        map[string]float64 `json:"prices"`
	AsOf          time.Time          `json:"as_of"`
}

// PositionView is one position with its current market value.
type PositionView struct {
	InstrumentID string  `json:"instrument_id"`
	Quantity     int64   `json:"quantity"`
	AverageCost  float64 `json:"average_cost"`
	MarketValue  float64 `json:"market_value"`
}

// FillsResponse lists recorded fills oldest first.
type FillsResponse struct {
	Fills []domain.Fill `json:"fills"`
}

// StatusResponse reports whether the trading session is live or halted.
type StatusResponse struct {
	Status string `json:"status"` // "ok" or "halted"
	Halted bool   `json:"halted"`
}
