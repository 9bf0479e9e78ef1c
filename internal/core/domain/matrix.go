package domain

import (
	"fmt"
	"sort"
	"strings"
)

// MatrixCombination is one point of the matrix: dimension name -> value.
type MatrixCombination map[string]string

// ExpandMatrix produces every combination of the matrix dimensions, one per
// job run. Dimensions iterate in sorted name order and values in declared
// order, so the expansion is deterministic. A nil strategy or empty matrix
// yields a single empty combination.
func ExpandMatrix(strategy *Strategy) []MatrixCombination {
	if strategy == nil || len(strategy.Matrix) == 0 {
		return []MatrixCombination{{}}
	}

	dims := make([]string, 0, len(strategy.Matrix))
	for name := range strategy.Matrix {
		dims = append(dims, name)
	}
	sort.Strings(dims)

	combos := []MatrixCombination{{}}
	for _, dim := range dims {
		next := make([]MatrixCombination, 0, len(combos)*len(strategy.Matrix[dim]))
		for _, combo := range combos {
			for _, value := range strategy.Matrix[dim] {
				expanded := make(MatrixCombination, len(combo)+1)
				for k, v := range combo {
					expanded[k] = v
				}
				expanded[dim] = value
				next = append(next, expanded)
			}
		}
		combos = next
	}
	return combos
}

// Label renders the combination for display, e.g. "(ubuntu-latest, 3.10)".
// Empty combinations render as "".
func (m MatrixCombination) Label() string {
	if len(m) == 0 {
		return ""
	}

	dims := make([]string, 0, len(m))
	for name := range m {
		dims = append(dims, name)
	}
	sort.Strings(dims)

	values := make([]string, 0, len(dims))
	for _, dim := range dims {
		values = append(values, m[dim])
	}
	return fmt.Sprintf("(%s)", strings.Join(values, ", "))
}
