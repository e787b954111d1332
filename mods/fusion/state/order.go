package state

import (
	"cmp"
	"slices"
)

// Before orders states by time, earliest first.
func Before(a, b *State) bool {
	return a.Time < b.Time
}

// CompareTime is the three-way form of Before, for the slices package.
func CompareTime(a, b *State) int {
	return cmp.Compare(a.Time, b.Time)
}

// SortByTime sorts states by time, earliest first.
// States with the same time keep their relative order.
func SortByTime(states []*State) {
	slices.SortStableFunc(states, CompareTime)
}
