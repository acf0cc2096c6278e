package broker

import (
	"context"

	"github.com/oklog/ulid/v2"

	"tradewind/internal/domain"
	"tradewind/internal/marketdata"
)

// Compile-time interface check.
var _ Executor = (*Simulator)(nil)

// Simulator executes orders against the latest observed price instead of a
// brokerage. It is the paper-trading executor: same interface, no money.
type Simulator struct {
	provider marketdata.Provider
}

// NewSimulator creates a Simulator that prices fills from the given provider.
func NewSimulator(provider marketdata.Provider) *Simulator {
	return &Simulator{provider: provider}
}

// Name returns "simulator".
func (s *Simulator) Name() string { return "simulator" }

// Submit fills the order immediately at the provider's latest price. An
// unavailable quote is an ExecutionError; no fill is fabricated.
func (s *Simulator) Submit(ctx context.Context, order domain.ApprovedOrder) (domain.Fill, error) {
	obs, err := s.provider.Latest(ctx, order.InstrumentID)
	if err != nil {
		return domain.Fill{}, &ExecutionError{
			Executor:     s.Name(),
			InstrumentID: order.InstrumentID,
			Err:          err,
		}
	}

	return domain.Fill{
		OrderRef:     ulid.Make().String(),
		InstrumentID: order.InstrumentID,
		Direction:    order.Direction,
		Quantity:     order.Quantity,
		Price:        obs.Price,
		Timestamp:    obs.Timestamp,
	}, nil
}
