package domain

import (
	"math"
	"sort"
)

// AllocationTolerance is the allowed deviation of the fraction sum from 1.0
const AllocationTolerance = 1e-6

// TargetAllocation maps asset classes to desired fractions of total portfolio value.
// An empty allocation is valid and means "no class target" (used by mean-variance optimization).
type TargetAllocation struct {
	Allocations map[AssetClass]float64 `json:"allocations"`
}

// NewTargetAllocation builds an allocation from a class-to-fraction map
func NewTargetAllocation(allocations map[AssetClass]float64) TargetAllocation {
	return TargetAllocation{Allocations: allocations}
}

// IsEmpty reports whether no class target is set
func (t TargetAllocation) IsEmpty() bool {
	return len(t.Allocations) == 0
}

// Sum returns the total of all fractions
func (t TargetAllocation) Sum() float64 {
	total := 0.0
	for _, pct := range t.Allocations {
		total += pct
	}
	return total
}

// Validate checks that a non-empty allocation sums to 1.0 within AllocationTolerance.
func (t TargetAllocation) Validate() error {
	if t.IsEmpty() {
		return nil
	}
	total := t.Sum()
	if math.Abs(total-1.0) > AllocationTolerance {
		return InvalidInputf("target allocations must sum to 1.0, but sum to %v", total)
	}
	return nil
}

// Classes returns the allocated classes in sorted order so that iteration is deterministic.
func (t TargetAllocation) Classes() []AssetClass {
	classes := make([]AssetClass, 0, len(t.Allocations))
	for class := range t.Allocations {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	return classes
}
