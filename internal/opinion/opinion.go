// Package opinion provides qualitative trading opinions from advisory
// sources. Opinions are untrusted, possibly-absent inputs: they may suppress
// an entry but never force a trade and never touch the portfolio.
package opinion

import (
	"context"

	"tradewind/internal/domain"
)

// Provider supplies the current advisory opinion for an instrument.
// A nil opinion with a nil error means the source has nothing to say, which
// every consumer must tolerate.
type Provider interface {
	// Current returns the latest opinion for the instrument, or nil when the
	// source has no view.
	Current(ctx context.Context, instrumentID string) (*domain.Opinion, error)
}

// Compile-time interface check.
var _ Provider = (Static)(nil)

// Static is a fixed opinion table, used in tests and for manual overrides
// from configuration.
type Static map[string]domain.Opinion

// Current returns the configured opinion for the instrument, or nil.
func (s Static) Current(_ context.Context, instrumentID string) (*domain.Opinion, error) {
	op, ok := s[instrumentID]
	if !ok {
		return nil, nil
	}
	return &op, nil
}
