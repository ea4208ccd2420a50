package domain

import (
	"fmt"
	"math"
	"time"
)

// Table is a time-indexed, column-major set of float64 series.
// Data[c][i] is the value of Columns[c] at Index[i]. Missing values are NaN.
type Table struct {
	Index   []time.Time
	Columns []string
	Data    [][]float64
}

// NewTable returns an empty table with the given columns.
func NewTable(columns ...string) Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return Table{
		Columns: cols,
		Data:    make([][]float64, len(cols)),
	}
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Index)
}

// Append adds one row. values must have one entry per column.
func (t *Table) Append(ts time.Time, values ...float64) {
	t.Index = append(t.Index, ts)
	for c := range t.Columns {
		t.Data[c] = append(t.Data[c], values[c])
	}
}

// Column returns the values of the named column.
func (t Table) Column(name string) ([]float64, bool) {
	for c, n := range t.Columns {
		if n == name {
			return t.Data[c], true
		}
	}
	return nil, false
}

// Row returns the values of every column at row i.
func (t Table) Row(i int) []float64 {
	row := make([]float64, len(t.Columns))
	for c := range t.Columns {
		row[c] = t.Data[c][i]
	}
	return row
}

// Span returns the first and last index entries. ok is false for an empty table.
// The table is assumed to be sorted.
func (t Table) Span() (first, last time.Time, ok bool) {
	if len(t.Index) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return t.Index[0], t.Index[len(t.Index)-1], true
}

// Slice returns rows [start, end). Bounds are clamped.
func (t Table) Slice(start, end int) Table {
	if start < 0 {
		start = 0
	}
	if end > t.Len() {
		end = t.Len()
	}
	if start >= end {
		return NewTable(t.Columns...)
	}
	out := NewTable(t.Columns...)
	out.Index = append([]time.Time(nil), t.Index[start:end]...)
	for c := range t.Columns {
		out.Data[c] = append([]float64(nil), t.Data[c][start:end]...)
	}
	return out
}

// Clone returns a deep copy.
func (t Table) Clone() Table {
	return t.Slice(0, t.Len())
}

// Validate checks that every column has one value per index entry.
func (t Table) Validate() error {
	if len(t.Data) != len(t.Columns) {
		return fmt.Errorf("table has %d columns but %d data slices", len(t.Columns), len(t.Data))
	}
	for c, name := range t.Columns {
		if len(t.Data[c]) != len(t.Index) {
			return fmt.Errorf("column %q has %d values, index has %d", name, len(t.Data[c]), len(t.Index))
		}
	}
	return nil
}

// Equal reports whether two tables hold the same columns, timestamps and values.
// NaN compares equal to NaN.
func (t Table) Equal(o Table) bool {
	if len(t.Columns) != len(o.Columns) || t.Len() != o.Len() {
		return false
	}
	for c := range t.Columns {
		if t.Columns[c] != o.Columns[c] {
			return false
		}
	}
	for i := range t.Index {
		if !t.Index[i].Equal(o.Index[i]) {
			return false
		}
	}
	for c := range t.Data {
		for i, v := range t.Data[c] {
			w := o.Data[c][i]
			if math.IsNaN(v) && math.IsNaN(w) {
				continue
			}
			if v != w {
				return false
			}
		}
	}
	return true
}
