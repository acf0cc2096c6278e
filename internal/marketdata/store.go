package marketdata

import (
	"context"
	"fmt"
	"time"

	"tradewind/internal/domain"
	"tradewind/internal/store"
)

// Compile-time interface check.
var _ Provider = (*StoreProvider)(nil)

// StoreProvider serves observations from the local observation store. It is
// used to warm up price series at session start and to run against gathered
// history without touching the network.
type StoreProvider struct {
	store   store.ObservationStore
	horizon time.Duration // how far back ReadObservations scans
}

// NewStoreProvider creates a StoreProvider scanning at most horizon into the
// past. A zero horizon defaults to two years.
func NewStoreProvider(s store.ObservationStore, horizon time.Duration) *StoreProvider {
	if horizon <= 0 {
		horizon = 2 * 365 * 24 * time.Hour
	}
	return &StoreProvider{store: s, horizon: horizon}
}

// Latest returns the most recent stored observation for the instrument.
func (p *StoreProvider) Latest(ctx context.Context, instrumentID string) (domain.PriceObservation, error) {
	obs, err := p.read(ctx, instrumentID)
	if err != nil {
		return domain.PriceObservation{}, err
	}
	return obs[len(obs)-1], nil
}

// History returns up to n most recent stored observations as a series.
func (p *StoreProvider) History(ctx context.Context, instrumentID string, n int) (*domain.PriceSeries, error) {
	obs, err := p.read(ctx, instrumentID)
	if err != nil {
		return nil, err
	}
	if len(obs) > n {
		obs = obs[len(obs)-n:]
	}

	series := domain.NewPriceSeries(instrumentID)
	for _, o := range obs {
		if err := series.Append(o); err != nil {
			return nil, fmt.Errorf("stored observations for %s out of order: %w", instrumentID, err)
		}
	}
	return series, nil
}

func (p *StoreProvider) read(ctx context.Context, instrumentID string) ([]domain.PriceObservation, error) {
	now := time.Now()
	obs, err := p.store.ReadObservations(ctx, instrumentID, now.Add(-p.horizon), now)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s from store: %v", ErrUnavailable, instrumentID, err)
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: no stored observations for %s", ErrUnavailable, instrumentID)
	}
	return obs, nil
}
