// Package analysis computes correlation matrices over aligned tables.
package analysis

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/quake-mag-etl/internal/domain"
)

// Method is a correlation coefficient.
type Method string

const (
	Pearson  Method = "pearson"
	Kendall  Method = "kendall"
	Spearman Method = "spearman"
)

// Methods lists every method in report order.
var Methods = []Method{Pearson, Kendall, Spearman}

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Methods, m) {
		return m, nil
	}
	return "", fmt.Errorf("unknown correlation method %q", s)
}

// Title returns the capitalized method name used in text output.
func (m Method) Title() string {
	if m == "" {
		return ""
	}
	return strings.ToUpper(string(m[:1])) + string(m[1:])
}

// Correlate returns the symmetric correlation matrix of every column pair in t.
// Each pair uses only the rows where both values are finite. Pairs with fewer
// than two such rows, or a constant side, are NaN.
func Correlate(t domain.Table, method Method) (Matrix, error) {
	if !slices.Contains(Methods, method) {
		return Matrix{}, fmt.Errorf("unknown correlation method %q", method)
	}
	if err := t.Validate(); err != nil {
		return Matrix{}, fmt.Errorf("correlate: %w", err)
	}

	n := len(t.Columns)
	m := newMatrix(t.Columns)
	for i := 0; i < n; i++ {
		m.Values[i][i] = selfCorrelation(t.Data[i])
		for j := i + 1; j < n; j++ {
			x, y := complete(t.Data[i], t.Data[j])
			v := coefficient(x, y, method)
			m.Values[i][j] = v
			m.Values[j][i] = v
		}
	}
	return m, nil
}

func coefficient(x, y []float64, method Method) float64 {
	if len(x) < 2 || constant(x) || constant(y) {
		return math.NaN()
	}
	var r float64
	switch method {
	case Pearson:
		r = stat.Correlation(x, y, nil)
	case Spearman:
		r = stat.Correlation(averageRanks(x), averageRanks(y), nil)
	case Kendall:
		r = kendallTauB(x, y)
	}
	return clamp(r)
}

// selfCorrelation is 1 for a column that could correlate with anything.
func selfCorrelation(col []float64) float64 {
	x, _ := complete(col, col)
	if len(x) < 2 || constant(x) {
		return math.NaN()
	}
	return 1
}

// complete returns the pairs where both values are finite.
func complete(a, b []float64) (x, y []float64) {
	x = make([]float64, 0, len(a))
	y = make([]float64, 0, len(b))
	for i := range a {
		if finite(a[i]) && finite(b[i]) {
			x = append(x, a[i])
			y = append(y, b[i])
		}
	}
	return x, y
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

func clamp(r float64) float64 {
	switch {
	case math.IsNaN(r):
		return r
	case r > 1:
		return 1
	case r < -1:
		return -1
	}
	return r
}

// averageRanks returns 1-based ranks; tied values share the mean of their ranks.
func averageRanks(x []float64) []float64 {
	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return compareFloat(x[a], x[b])
	})

	ranks := make([]float64, len(x))
	for start := 0; start < len(order); {
		end := start + 1
		for end < len(order) && x[order[end]] == x[order[start]] {
			end++
		}
		// Positions start..end-1 hold ranks start+1..end.
		avg := float64(start+1+end) / 2
		for k := start; k < end; k++ {
			ranks[order[k]] = avg
		}
		start = end
	}
	return ranks
}

// kendallTauB computes tau-b in O(n log n) with Knight's algorithm: sort by
// (x, y), then count discordant pairs as the inversions left in y.
func kendallTauB(x, y []float64) float64 {
	n := len(x)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		if c := compareFloat(x[a], x[b]); c != 0 {
			return c
		}
		return compareFloat(y[a], y[b])
	})

	xs := make([]float64, n)
	ys := make([]float64, n)
	for k, idx := range order {
		xs[k] = x[idx]
		ys[k] = y[idx]
	}

	var xTies, jointTies int64
	for start := 0; start < n; {
		end := start + 1
		for end < n && xs[end] == xs[start] {
			end++
		}
		xTies += pairs(end - start)
		for s := start; s < end; {
			e := s + 1
			for e < end && ys[e] == ys[s] {
				e++
			}
			jointTies += pairs(e - s)
			s = e
		}
		start = end
	}

	discordant := countInversions(ys, make([]float64, n))

	var yTies int64
	for start := 0; start < n; {
		end := start + 1
		for end < n && ys[end] == ys[start] {
			end++
		}
		yTies += pairs(end - start)
		start = end
	}

	total := pairs(n)
	denom := math.Sqrt(float64(total-xTies) * float64(total-yTies))
	if denom == 0 {
		return math.NaN()
	}
	return float64(total-xTies-yTies+jointTies-2*discordant) / denom
}

func pairs(k int) int64 {
	return int64(k) * int64(k-1) / 2
}

// countInversions sorts a in place and returns the number of pairs i < j with
// a[i] > a[j]. Equal values are not inversions.
func countInversions(a, buf []float64) int64 {
	if len(a) < 2 {
		return 0
	}
	mid := len(a) / 2
	inv := countInversions(a[:mid], buf[:mid]) + countInversions(a[mid:], buf[mid:])

	i, j, k := 0, mid, 0
	for i < mid && j < len(a) {
		if a[j] < a[i] {
			buf[k] = a[j]
			inv += int64(mid - i)
			j++
		} else {
			buf[k] = a[i]
			i++
		}
		k++
	}
	k += copy(buf[k:], a[i:mid])
	copy(buf[k:], a[j:])
	copy(a, buf[:len(a)])
	return inv
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
