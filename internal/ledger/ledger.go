// Package ledger holds the authoritative record of cash, positions, and
// realized P&L. All mutation goes through ApplyFill; every other accessor is
// a read-only snapshot.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tradewind/internal/domain"
)

var (
	// ErrInvalidFill indicates a fill that would breach an accounting
	// invariant (negative cash, oversold position). It means the risk gate
	// upstream failed, so the ledger halts and refuses further fills.
	ErrInvalidFill = errors.New("invalid fill")

	// ErrDuplicateFill indicates a fill whose order_ref was already applied.
	// Fills are consumed exactly once; the duplicate is rejected and the
	// ledger stays live.
	ErrDuplicateFill = errors.New("duplicate fill")

	// ErrHalted indicates the ledger refused a fill because a prior
	// ErrInvalidFill put it in the halted state.
	ErrHalted = errors.New("ledger halted")
)

// Ledger is the single-writer portfolio aggregate. Decision cycles for
// different instruments may run concurrently, but fill application serializes
// here because cash and exposure invariants span instruments.
type Ledger struct {
	log *slog.Logger

	mu        sync.Mutex
	cash      float64
	positions map[string]domain.Position
	realized  float64
	applied   map[string]struct{} // order_refs consumed so far
	halted    bool
}

// New creates a ledger with the given starting cash.
func New(startingCash float64, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{
		log:       log,
		cash:      startingCash,
		positions: make(map[string]domain.Position),
		applied:   make(map[string]struct{}),
	}
}

// Restore rebuilds a ledger by replaying previously recorded fills in order.
// It is used to resume a session from the persisted fill log.
func Restore(startingCash float64, fills []domain.Fill, log *slog.Logger) (*Ledger, error) {
	l := New(startingCash, log)
	for _, f := range fills {
		if _, err := l.ApplyFill(f); err != nil {
			return nil, fmt.Errorf("replay fill %s: %w", f.OrderRef, err)
		}
	}
	return l, nil
}

// ApplyFill applies one execution result and returns the updated portfolio
// snapshot. A fill that would drive cash negative or oversell a position
// returns ErrInvalidFill and halts the ledger: that state means the risk gate
// upstream is broken and money accounting can no longer be trusted.
func (l *Ledger) ApplyFill(f domain.Fill) (domain.Portfolio, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.halted {
		return l.snapshotLocked(), ErrHalted
	}
	if _, ok := l.applied[f.OrderRef]; ok {
		return l.snapshotLocked(), fmt.Errorf("%w: order_ref %s", ErrDuplicateFill, f.OrderRef)
	}
	if f.Quantity <= 0 || f.Price <= 0 {
		return l.snapshotLocked(), l.haltLocked(fmt.Errorf("%w: quantity %d price %.4f", ErrInvalidFill, f.Quantity, f.Price))
	}

	switch f.Direction {
	case domain.DirectionBuy:
		cost := float64(f.Quantity) * f.Price
		if cost > l.cash {
			return l.snapshotLocked(), l.haltLocked(fmt.Errorf("%w: buy cost %.2f exceeds cash %.2f", ErrInvalidFill, cost, l.cash))
		}
		pos := l.positions[f.InstrumentID]
		pos.InstrumentID = f.InstrumentID
		total := float64(pos.Quantity)*pos.AverageCost + cost
		pos.Quantity += f.Quantity
		pos.AverageCost = total / float64(pos.Quantity)
		l.positions[f.InstrumentID] = pos
		l.cash -= cost

	case domain.DirectionSell:
		pos, ok := l.positions[f.InstrumentID]
		if !ok || f.Quantity > pos.Quantity {
			return l.snapshotLocked(), l.haltLocked(fmt.Errorf("%w: sell %d of %s exceeds held %d", ErrInvalidFill, f.Quantity, f.InstrumentID, pos.Quantity))
		}
		l.cash += float64(f.Quantity) * f.Price
		l.realized += float64(f.Quantity) * (f.Price - pos.AverageCost)
		pos.Quantity -= f.Quantity
		if pos.Quantity == 0 {
			delete(l.positions, f.InstrumentID)
		} else {
			l.positions[f.InstrumentID] = pos
		}

	default:
		return l.snapshotLocked(), l.haltLocked(fmt.Errorf("%w: unknown direction %q", ErrInvalidFill, f.Direction))
	}

	l.applied[f.OrderRef] = struct{}{}
	return l.snapshotLocked(), nil
}

// Snapshot returns a read-only copy of the portfolio state.
func (l *Ledger) Snapshot() domain.Portfolio {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Position returns the current position in one instrument. The zero value is
// returned when flat.
func (l *Ledger) Position(instrumentID string) domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.positions[instrumentID]
}

// MarkToMarket returns the unrealized P&L of all open positions at the given
// prices. It is a derived read, never stored, so it cannot go stale. A
// position with no quoted price contributes zero.
func (l *Ledger) MarkToMarket(prices map[string]float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	unrealized := 0.0
	for id, pos := range l.positions {
		price, ok := prices[id]
		if !ok {
			continue
		}
		unrealized += float64(pos.Quantity) * (price - pos.AverageCost)
	}
	return unrealized
}

// Halted reports whether the ledger stopped accepting fills after an
// invariant breach.
func (l *Ledger) Halted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.halted
}

func (l *Ledger) haltLocked(err error) error {
	l.halted = true
	l.log.Error("ledger halted, accounting invariant breached", "err", err)
	return err
}

func (l *Ledger) snapshotLocked() domain.Portfolio {
	positions := make(map[string]domain.Position, len(l.positions))
	for id, pos := range l.positions {
		positions[id] = pos
	}
	return domain.Portfolio{
		Cash:        l.cash,
		Positions:   positions,
		RealizedPnL: l.realized,
	}
}
