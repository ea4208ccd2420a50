package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TailFill decides what happens to trailing buckets that back-filling cannot
// reach because no later value exists.
type TailFill string

const (
	// TailForwardFill carries the last defined value forward.
	TailForwardFill TailFill = "ffill"
	// TailDrop trims trailing rows that still hold an undefined value.
	TailDrop TailFill = "drop"
)

// ParseTailFill validates a tail policy name.
func ParseTailFill(s string) (TailFill, error) {
	switch TailFill(strings.ToLower(strings.TrimSpace(s))) {
	case TailForwardFill:
		return TailForwardFill, nil
	case TailDrop:
		return TailDrop, nil
	default:
		return "", fmt.Errorf("unknown tail fill policy %q (want ffill or drop)", s)
	}
}

// Resample buckets t to iv, averaging the defined values in each bucket.
// The output has one row per bucket from the first to the last occupied
// bucket. Empty buckets take the value of the next defined bucket; trailing
// gaps are resolved by tail. The input does not need to be sorted.
func Resample(t Table, iv Interval, tail TailFill) (Table, error) {
	step := iv.Step()
	if step == 0 {
		return Table{}, fmt.Errorf("resample: unknown interval %q", iv)
	}
	if err := t.Validate(); err != nil {
		return Table{}, fmt.Errorf("resample: %w", err)
	}

	out := NewTable(t.Columns...)
	if t.Len() == 0 {
		return out, nil
	}

	first, last := iv.Bucket(t.Index[0]), iv.Bucket(t.Index[0])
	for _, ts := range t.Index[1:] {
		b := iv.Bucket(ts)
		if b.Before(first) {
			first = b
		}
		if b.After(last) {
			last = b
		}
	}
	n := int(last.Sub(first)/step) + 1

	out.Index = make([]time.Time, n)
	for k := range out.Index {
		out.Index[k] = first.Add(time.Duration(k) * step)
	}

	for c := range t.Columns {
		sums := make([]float64, n)
		counts := make([]int, n)
		for i, ts := range t.Index {
			v := t.Data[c][i]
			if math.IsNaN(v) {
				continue
			}
			pos := int(iv.Bucket(ts).Sub(first) / step)
			sums[pos] += v
			counts[pos]++
		}
		col := make([]float64, n)
		for k := range col {
			if counts[k] == 0 {
				col[k] = math.NaN()
				continue
			}
			col[k] = sums[k] / float64(counts[k])
		}
		backFill(col)
		out.Data[c] = col
	}

	return applyTail(out, tail), nil
}

// backFill replaces NaN entries with the nearest later defined value.
func backFill(col []float64) {
	next := math.NaN()
	for k := len(col) - 1; k >= 0; k-- {
		if math.IsNaN(col[k]) {
			col[k] = next
			continue
		}
		next = col[k]
	}
}

// forwardFill replaces NaN entries with the nearest earlier defined value.
func forwardFill(col []float64) {
	prev := math.NaN()
	for k := range col {
		if math.IsNaN(col[k]) {
			col[k] = prev
			continue
		}
		prev = col[k]
	}
}

func applyTail(t Table, tail TailFill) Table {
	switch tail {
	case TailDrop:
		empty := make([]bool, len(t.Data))
		for c := range t.Data {
			empty[c] = allNaN(t.Data[c])
		}
		end := t.Len()
		for end > 0 && rowHasGap(t, empty, end-1) {
			end--
		}
		if end == t.Len() {
			return t
		}
		return t.Slice(0, end)
	default:
		for c := range t.Data {
			forwardFill(t.Data[c])
		}
		return t
	}
}

// rowHasGap reports whether row i is undefined in a column that has at least
// one defined value. Columns with no data at all never trigger a drop.
func rowHasGap(t Table, empty []bool, i int) bool {
	for c := range t.Data {
		if !empty[c] && math.IsNaN(t.Data[c][i]) {
			return true
		}
	}
	return false
}

func allNaN(col []float64) bool {
	for _, v := range col {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
