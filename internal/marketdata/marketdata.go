// Package marketdata defines the market-snapshot boundary and provides
// implementations backed by the Alpaca data API and the local observation
// store.
package marketdata

import (
	"context"
	"errors"

	"tradewind/internal/domain"
)

// ErrUnavailable indicates that no observation could be obtained for the
// requested instrument. Providers must return it rather than fabricate a
// price.
var ErrUnavailable = errors.New("market data unavailable")

// Provider supplies quoted prices for instruments. Implementations may block
// on network I/O and must honor context cancellation.
type Provider interface {
	// Latest returns the most recent observation for the instrument, or
	// ErrUnavailable when no quote exists.
	Latest(ctx context.Context, instrumentID string) (domain.PriceObservation, error)

	// History returns up to n most recent observations as an ordered series,
	// oldest first. Fewer than n observations is not an error; a series with
	// no observations at all is ErrUnavailable.
	History(ctx context.Context, instrumentID string, n int) (*domain.PriceSeries, error)
}
