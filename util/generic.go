// util/generic.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"slices"

	"golang.org/x/exp/constraints"
)

// SortedMapKeys returns the keys of the given map, sorted from low to high.
func SortedMapKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// DeleteFirst removes the first element of s that is equal to v, reporting
// whether one was found. The order of the remaining elements is preserved.
func DeleteFirst[T comparable](s []T, v T) ([]T, bool) {
	if idx := slices.Index(s, v); idx != -1 {
		return slices.Delete(s, idx, idx+1), true
	}
	return s, false
}
