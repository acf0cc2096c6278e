// Package broker defines the Executor interface and provides implementations
// for placing approved orders, both simulated and against a live brokerage.
package broker

import (
	"context"
	"fmt"

	"tradewind/internal/domain"
)

// Executor places an approved order and reports the resulting fill.
type Executor interface {
	// Name returns the executor identifier (e.g. "alpaca", "simulator").
	Name() string

	// Submit places the order and blocks until it fills or fails. On an
	// ExecutionError the caller must leave the portfolio untouched; retrying
	// is the caller's policy, not the executor's.
	Submit(ctx context.Context, order domain.ApprovedOrder) (domain.Fill, error)
}

// ExecutionError is a brokerage-side failure: a network error, a rejected
// order, or a fill that never confirmed. It is a normal failure mode, not a
// program bug.
type ExecutionError struct {
	Executor     string
	InstrumentID string
	Err          error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: executing order for %s: %v", e.Executor, e.InstrumentID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
