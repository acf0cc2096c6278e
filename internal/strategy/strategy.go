// Package strategy defines the Policy interface for trading decision policies
// and provides a Registry for managing multiple policy implementations.
package strategy

import (
	"sort"
	"time"

	"tradewind/internal/domain"
)

// Context bundles everything a policy may consult for one decision: the
// price series so far, the latest indicator signal, an optional advisory
// opinion, the current position, and the configured sizing rule.
//
// Policies must be pure functions of their Context. In particular they must
// take the decision timestamp from the observation clock (Timestamp), never
// from the wall clock, so that a backtest replays exactly what the live path
// would have decided.
type Context struct {
	Series   *domain.PriceSeries
	Signal   domain.Signal
	Opinion  *domain.Opinion // nil when no advisory source is available
	Position domain.Position // zero-value when flat

	Price     float64   // price of the latest observation
	Timestamp time.Time // timestamp of the latest observation

	DefaultQuantity int64
}

// Policy is the interface all decision policies implement. Decide returns a
// trade intent, or nil for a deliberate no-op. Decide must be deterministic:
// identical contexts yield identical intents.
type Policy interface {
	// Name returns the unique identifier for this policy.
	Name() string

	// Decide maps the decision context to a trade intent or nil.
	Decide(dc Context) *domain.TradeIntent
}

// SellQuantity clamps a proposed sell size to the held quantity. Long-only:
// a sell against no position is a no-op (returns 0), and oversized sells
// clamp to the held quantity rather than erroring.
func SellQuantity(proposed int64, pos domain.Position) int64 {
	if pos.Quantity <= 0 {
		return 0
	}
	if proposed <= 0 || proposed > pos.Quantity {
		return pos.Quantity
	}
	return proposed
}

// Registry holds a named collection of policies for lookup and enumeration.
type Registry struct {
	policies map[string]Policy
}

// NewRegistry creates an empty policy Registry.
func NewRegistry() *Registry {
	return &Registry{
		policies: make(map[string]Policy),
	}
}

// Register adds a policy to the registry, keyed by its Name().
func (r *Registry) Register(p Policy) {
	r.policies[p.Name()] = p
}

// Get retrieves a policy by name. The second return value indicates whether
// the policy was found.
func (r *Registry) Get(name string) (Policy, bool) {
	p, ok := r.policies[name]
	return p, ok
}

// List returns a sorted slice of all registered policy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
