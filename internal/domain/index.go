package domain

import (
	"slices"
	"time"
)

// IndexByTime returns a copy of t with rows stably sorted by timestamp.
// Every input row appears exactly once in the output.
func IndexByTime(t Table) Table {
	perm := make([]int, t.Len())
	for i := range perm {
		perm[i] = i
	}
	slices.SortStableFunc(perm, func(a, b int) int {
		return t.Index[a].Compare(t.Index[b])
	})

	out := NewTable(t.Columns...)
	out.Index = make([]time.Time, len(perm))
	for i, p := range perm {
		out.Index[i] = t.Index[p]
	}
	for c := range t.Columns {
		col := make([]float64, len(perm))
		for i, p := range perm {
			col[i] = t.Data[c][p]
		}
		out.Data[c] = col
	}
	return out
}

// IsSorted reports whether the index is non-decreasing.
func IsSorted(t Table) bool {
	return slices.IsSortedFunc(t.Index, func(a, b time.Time) int {
		return a.Compare(b)
	})
}
