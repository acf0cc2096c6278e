package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradewind/internal/domain"
	"tradewind/internal/marketdata"
)

type fakeProvider struct {
	obs domain.PriceObservation
	err error
}

func (f *fakeProvider) Latest(_ context.Context, _ string) (domain.PriceObservation, error) {
	return f.obs, f.err
}

func (f *fakeProvider) History(_ context.Context, _ string, _ int) (*domain.PriceSeries, error) {
	return nil, marketdata.ErrUnavailable
}

func TestSimulatorFillsAtLatestPrice(t *testing.T) {
	ts := time.Date(2025, 6, 2, 14, 35, 0, 0, time.UTC)
	sim := NewSimulator(&fakeProvider{obs: domain.PriceObservation{
		InstrumentID: "AAPL",
		Timestamp:    ts,
		Price:        110,
		Volume:       500,
	}})

	order := domain.ApprovedOrder{TradeIntent: domain.TradeIntent{
		InstrumentID: "AAPL",
		Direction:    domain.DirectionBuy,
		Quantity:     10,
		GeneratedAt:  ts,
	}}
	fill, err := sim.Submit(context.Background(), order)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if fill.Price != 110 || fill.Quantity != 10 || fill.Direction != domain.DirectionBuy {
		t.Errorf("fill = %+v, want BUY 10 at 110", fill)
	}
	if fill.OrderRef == "" {
		t.Error("fill has empty order_ref")
	}
	if !fill.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %s, want observation time %s", fill.Timestamp, ts)
	}
}

func TestSimulatorUniqueOrderRefs(t *testing.T) {
	sim := NewSimulator(&fakeProvider{obs: domain.PriceObservation{
		InstrumentID: "AAPL",
		Timestamp:    time.Now(),
		Price:        100,
	}})
	order := domain.ApprovedOrder{TradeIntent: domain.TradeIntent{
		InstrumentID: "AAPL",
		Direction:    domain.DirectionBuy,
		Quantity:     1,
	}}

	refs := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		fill, err := sim.Submit(context.Background(), order)
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if _, dup := refs[fill.OrderRef]; dup {
			t.Fatalf("duplicate order_ref %s", fill.OrderRef)
		}
		refs[fill.OrderRef] = struct{}{}
	}
}

func TestSimulatorSurfacesExecutionError(t *testing.T) {
	sim := NewSimulator(&fakeProvider{err: marketdata.ErrUnavailable})

	_, err := sim.Submit(context.Background(), domain.ApprovedOrder{TradeIntent: domain.TradeIntent{
		InstrumentID: "AAPL",
		Direction:    domain.DirectionBuy,
		Quantity:     1,
	}})
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("err = %v, want *ExecutionError", err)
	}
	if !errors.Is(err, marketdata.ErrUnavailable) {
		t.Errorf("err = %v, want to wrap ErrUnavailable", err)
	}
}
