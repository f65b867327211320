package reconciler

import (
	"github.com/agentstation/atmap/pkg/fingerprint"
)

// StrategyType represents how the canonical feature at a location is chosen.
type StrategyType string

// String returns the string representation of a strategy type.
func (s StrategyType) String() string {
	return string(s)
}

const (
	// StrategyTypeFirstArrival keeps the non-mergeable properties of the
	// first feature seen at a location.
	StrategyTypeFirstArrival StrategyType = "first-arrival"
	// StrategyTypeLowestSource keeps the non-mergeable properties of the
	// contribution with the smallest (bank, fingerprint) rank, which does
	// not depend on arrival order.
	StrategyTypeLowestSource StrategyType = "lowest-source"
)

// Rank orders the contributions made at one location.
type Rank struct {
	Bank   string
	Digest fingerprint.Digest
}

// Less reports whether r sorts before o.
func (r Rank) Less(o Rank) bool {
	if r.Bank != o.Bank {
		return r.Bank < o.Bank
	}
	return r.Digest.String() < o.Digest.String()
}

// Strategy decides which contribution supplies the non-mergeable properties.
type Strategy interface {
	// Type returns the strategy type
	Type() StrategyType

	// Description returns a human-readable description
	Description() string

	// Prefer reports whether incoming should replace canonical as the
	// supplier of non-mergeable properties.
	Prefer(canonical, incoming Rank) bool
}

type baseStrategy struct {
	typ         StrategyType
	description string
}

// Type returns the strategy type.
func (s *baseStrategy) Type() StrategyType {
	return s.typ
}

// Description returns a human-readable description.
func (s *baseStrategy) Description() string {
	return s.description
}

// FirstArrivalStrategy never replaces the canonical feature.
type FirstArrivalStrategy struct {
	baseStrategy
}

// NewFirstArrivalStrategy creates the default strategy.
func NewFirstArrivalStrategy() Strategy {
	return &FirstArrivalStrategy{
		baseStrategy: baseStrategy{
			typ:         StrategyTypeFirstArrival,
			description: "Keeps the first feature seen at a location",
		},
	}
}

// Prefer implements Strategy.
func (s *FirstArrivalStrategy) Prefer(_, _ Rank) bool {
	return false
}

// LowestSourceStrategy prefers the contribution with the lowest rank.
type LowestSourceStrategy struct {
	baseStrategy
}

// NewLowestSourceStrategy creates the order-independent strategy.
func NewLowestSourceStrategy() Strategy {
	return &LowestSourceStrategy{
		baseStrategy: baseStrategy{
			typ:         StrategyTypeLowestSource,
			description: "Keeps the feature with the smallest bank name and fingerprint at a location",
		},
	}
}

// Prefer implements Strategy.
func (s *LowestSourceStrategy) Prefer(canonical, incoming Rank) bool {
	return incoming.Less(canonical)
}
