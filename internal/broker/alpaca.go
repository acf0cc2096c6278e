package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"tradewind/internal/domain"
)

// Compile-time interface check.
var _ Executor = (*AlpacaExecutor)(nil)

// AlpacaExecutor places orders through the Alpaca trading API. It submits a
// market day order and polls until the fill confirms.
type AlpacaExecutor struct {
	client       *alpaca.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
	log          *slog.Logger
}

// NewAlpacaExecutor creates an AlpacaExecutor configured with the given
// credentials. baseURL selects paper or live trading when non-empty.
func NewAlpacaExecutor(apiKey, apiSecret, baseURL string) *AlpacaExecutor {
	opts := alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if baseURL != "" {
		opts.BaseURL = baseURL
	}

	return &AlpacaExecutor{
		client:       alpaca.NewClient(opts),
		pollInterval: time.Second,
		pollTimeout:  30 * time.Second,
		log:          slog.Default().With("executor", "alpaca"),
	}
}

// Name returns "alpaca".
func (e *AlpacaExecutor) Name() string { return "alpaca" }

// Submit places a market order and blocks until it fills, the poll times
// out, or the context is cancelled.
func (e *AlpacaExecutor) Submit(ctx context.Context, order domain.ApprovedOrder) (domain.Fill, error) {
	side := alpaca.Buy
	if order.Direction == domain.DirectionSell {
		side = alpaca.Sell
	}
	qty := decimal.NewFromInt(order.Quantity)

	placed, err := e.client.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      order.InstrumentID,
		Qty:         &qty,
		Side:        side,
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	})
	if err != nil {
		return domain.Fill{}, &ExecutionError{
			Executor:     e.Name(),
			InstrumentID: order.InstrumentID,
			Err:          err,
		}
	}

	e.log.Info("order placed",
		"instrument", order.InstrumentID,
		"side", side,
		"quantity", order.Quantity,
		"order_id", placed.ID,
	)
	return e.awaitFill(ctx, order, placed.ID)
}

// awaitFill polls the order until it reports filled.
func (e *AlpacaExecutor) awaitFill(ctx context.Context, order domain.ApprovedOrder, orderID string) (domain.Fill, error) {
	deadline := time.Now().Add(e.pollTimeout)
	for {
		select {
		case <-ctx.Done():
			return domain.Fill{}, &ExecutionError{
				Executor:     e.Name(),
				InstrumentID: order.InstrumentID,
				Err:          ctx.Err(),
			}
		case <-time.After(e.pollInterval):
		}

		placed, err := e.client.GetOrder(orderID)
		if err != nil {
			return domain.Fill{}, &ExecutionError{
				Executor:     e.Name(),
				InstrumentID: order.InstrumentID,
				Err:          fmt.Errorf("polling order %s: %w", orderID, err),
			}
		}

		if placed.Status == "filled" && placed.FilledAvgPrice != nil && placed.FilledAt != nil {
			price, _ := placed.FilledAvgPrice.Float64()
			return domain.Fill{
				OrderRef:     placed.ID,
				InstrumentID: order.InstrumentID,
				Direction:    order.Direction,
				Quantity:     placed.FilledQty.IntPart(),
				Price:        price,
				Timestamp:    *placed.FilledAt,
			}, nil
		}
		if placed.Status == "canceled" || placed.Status == "rejected" || placed.Status == "expired" {
			return domain.Fill{}, &ExecutionError{
				Executor:     e.Name(),
				InstrumentID: order.InstrumentID,
				Err:          fmt.Errorf("order %s ended %s", orderID, placed.Status),
			}
		}

		if time.Now().After(deadline) {
			return domain.Fill{}, &ExecutionError{
				Executor:     e.Name(),
				InstrumentID: order.InstrumentID,
				Err:          fmt.Errorf("order %s not filled within %s", orderID, e.pollTimeout),
			}
		}
	}
}
