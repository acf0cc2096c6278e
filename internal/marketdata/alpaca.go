package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tradewind/internal/domain"
	"tradewind/internal/util"
)

// Compile-time interface check.
var _ Provider = (*AlpacaProvider)(nil)

// AlpacaProvider serves observations from the Alpaca market-data API. Calls
// are rate-limited and retried with backoff; a quote that cannot be obtained
// surfaces as ErrUnavailable, never as a fabricated price.
type AlpacaProvider struct {
	client  *marketdata.Client
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewAlpacaProvider creates an AlpacaProvider with the given credentials.
// dataURL overrides the default API endpoint when non-empty. rateLimitPerMin
// bounds outbound API calls.
func NewAlpacaProvider(apiKey, apiSecret, dataURL string, rateLimitPerMin int) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaProvider{
		client:  marketdata.NewClient(opts),
		limiter: util.NewRateLimiter(rateLimitPerMin),
		log:     slog.Default().With("provider", "alpaca"),
	}
}

// Latest returns the most recent trade print for the instrument.
func (p *AlpacaProvider) Latest(ctx context.Context, instrumentID string) (domain.PriceObservation, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return domain.PriceObservation{}, err
	}

	var trade *marketdata.Trade
	err := util.Retry(ctx, 3, 500*time.Millisecond, func() error {
		var err error
		trade, err = p.client.GetLatestTrade(instrumentID, marketdata.GetLatestTradeRequest{})
		return err
	})
	if err != nil {
		return domain.PriceObservation{}, fmt.Errorf("%w: latest trade for %s: %v", ErrUnavailable, instrumentID, err)
	}
	if trade == nil || trade.Price <= 0 {
		return domain.PriceObservation{}, fmt.Errorf("%w: no trade for %s", ErrUnavailable, instrumentID)
	}

	return domain.PriceObservation{
		InstrumentID: instrumentID,
		Timestamp:    trade.Timestamp,
		Price:        trade.Price,
		Volume:       int64(trade.Size),
	}, nil
}

// History returns up to n most recent daily bars as a series, oldest first.
func (p *AlpacaProvider) History(ctx context.Context, instrumentID string, n int) (*domain.PriceSeries, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var bars []marketdata.Bar
	err := util.Retry(ctx, 3, 500*time.Millisecond, func() error {
		var err error
		bars, err = p.client.GetBars(instrumentID, marketdata.GetBarsRequest{
			TimeFrame:  marketdata.OneDay,
			Start:      time.Now().AddDate(0, 0, -2*n), // calendar days vs trading days
			TotalLimit: n,
			Feed:       "iex",
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: bars for %s: %v", ErrUnavailable, instrumentID, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s", ErrUnavailable, instrumentID)
	}

	series := domain.NewPriceSeries(instrumentID)
	for _, b := range bars {
		err := series.Append(domain.PriceObservation{
			InstrumentID: instrumentID,
			Timestamp:    b.Timestamp,
			Price:        b.Close,
			Volume:       int64(b.Volume),
		})
		if err != nil {
			return nil, fmt.Errorf("bars for %s out of order: %w", instrumentID, err)
		}
	}
	return series, nil
}
