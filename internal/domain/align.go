package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrMisaligned is returned when two resampled tables do not share a bucket grid
// over their overlap window.
var ErrMisaligned = errors.New("resampled tables are not aligned")

// CollisionSuffix is appended to right-hand column names already used on the left.
const CollisionSuffix = "_r"

// Align resamples left and right to iv, truncates both to the window they
// have in common and joins them column-wise (left columns first).
//
// The window is [max(first), min(last)], inclusive on both ends. Disjoint or
// empty inputs produce an empty table with the joined columns.
func Align(left, right Table, iv Interval, tail TailFill) (Table, error) {
	rl, err := Resample(left, iv, tail)
	if err != nil {
		return Table{}, fmt.Errorf("align left: %w", err)
	}
	rr, err := Resample(right, iv, tail)
	if err != nil {
		return Table{}, fmt.Errorf("align right: %w", err)
	}

	out := NewTable(joinColumns(rl.Columns, rr.Columns)...)

	lFirst, lLast, okL := rl.Span()
	rFirst, rLast, okR := rr.Span()
	if !okL || !okR {
		return out, nil
	}

	start := lFirst
	if rFirst.After(start) {
		start = rFirst
	}
	end := lLast
	if rLast.Before(end) {
		end = rLast
	}
	if start.After(end) {
		return out, nil
	}

	lt := truncate(rl, start, end)
	rt := truncate(rr, start, end)
	if lt.Len() != rt.Len() {
		return Table{}, fmt.Errorf("%w: %d vs %d buckets", ErrMisaligned, lt.Len(), rt.Len())
	}
	for i := range lt.Index {
		if !lt.Index[i].Equal(rt.Index[i]) {
			return Table{}, fmt.Errorf("%w: bucket %d is %s vs %s", ErrMisaligned, i, lt.Index[i], rt.Index[i])
		}
	}

	out.Index = lt.Index
	out.Data = append(append(out.Data[:0], lt.Data...), rt.Data...)
	return out, nil
}

// truncate keeps the rows of a sorted table whose index lies in [start, end].
func truncate(t Table, start, end time.Time) Table {
	lo := 0
	for lo < t.Len() && t.Index[lo].Before(start) {
		lo++
	}
	hi := lo
	for hi < t.Len() && !t.Index[hi].After(end) {
		hi++
	}
	return t.Slice(lo, hi)
}

func joinColumns(left, right []string) []string {
	seen := make(map[string]bool, len(left)+len(right))
	cols := make([]string, 0, len(left)+len(right))
	for _, c := range left {
		seen[c] = true
		cols = append(cols, c)
	}
	for _, c := range right {
		name := c
		for seen[name] {
			name += CollisionSuffix
		}
		seen[name] = true
		cols = append(cols, name)
	}
	return cols
}
