// Package tradewind provides a Go SDK for the tradewind dashboard API.
package tradewind

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Portfolio is the portfolio snapshot served by GET /api/portfolio.
type Portfolio struct {
	Cash          float64            `json:"cash"`
	Positions     []Position         `json:"positions"`
	RealizedPnL   float64            `json:"realized_pnl"`
	UnrealizedPnL float64            `json:"unrealized_pnl"`
	Equity        float64            `json:"equity"`
	Prices        map[string]float64 `json:"prices"`
	AsOf          time.Time          `json:"as_of"`
}

// Position is one holding with its current market value.
type Position struct {
	InstrumentID string  `json:"instrument_id"`
	Quantity     int64   `json:"quantity"`
	AverageCost  float64 `json:"average_cost"`
	MarketValue  float64 `json:"market_value"`
}

// Fill is one executed trade from the trade log.
type Fill struct {
	OrderRef     string    `json:"order_ref"`
	InstrumentID string    `json:"instrument_id"`
	Direction    string    `json:"direction"`
	Quantity     int64     `json:"quantity"`
	Price        float64   `json:"price"`
	Timestamp    time.Time `json:"timestamp"`
}

// Status reports whether the trading session is live or halted.
type Status struct {
	Status string `json:"status"`
	Halted bool   `json:"halted"`
}

// Client provides a Go SDK for interacting with the tradewind server API.
// The API is read-only: there is deliberately no order entry point here.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new tradewind API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetPortfolio retrieves the current portfolio snapshot.
func (c *Client) GetPortfolio(ctx context.Context) (*Portfolio, error) {
	var resp Portfolio
	if err := c.get(ctx, "/api/portfolio", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetFills retrieves the recorded trade log, oldest first.
func (c *Client) GetFills(ctx context.Context) ([]Fill, error) {
	var resp struct {
		Fills []Fill `json:"fills"`
	}
	if err := c.get(ctx, "/api/fills", &resp); err != nil {
		return nil, err
	}
	return resp.Fills, nil
}

// GetStatus reports whether the trading session is live or halted.
func (c *Client) GetStatus(ctx context.Context) (*Status, error) {
	var resp Status
	if err := c.get(ctx, "/api/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
