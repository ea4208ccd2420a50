package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/couchcryptid/quake-mag-etl/internal/domain"
)

// Result is one correlation matrix of a report.
type Result struct {
	Interval domain.Interval `json:"interval" yaml:"interval"`
	Method   Method          `json:"method" yaml:"method"`
	Rows     int             `json:"rows" yaml:"rows"`
	Matrix   Matrix          `json:"matrix" yaml:"matrix"`
}

// Key identifies the result within a report, e.g. "daily/kendall".
func (r Result) Key() string {
	return string(r.Interval) + "/" + string(r.Method)
}

// Report holds every interval and method combination for one run.
type Report struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Start       time.Time `json:"start,omitzero" yaml:"start,omitempty"`
	End         time.Time `json:"end,omitzero" yaml:"end,omitempty"`
	Results     []Result  `json:"results" yaml:"results"`
}

// Analyze correlates the hourly unified table and its daily and weekly
// resamplings with every method. An empty table yields all-NaN matrices.
func Analyze(unified domain.Table, tail domain.TailFill) (Report, error) {
	var r Report
	if first, last, ok := unified.Span(); ok {
		r.Start, r.End = first, last
	}

	for _, iv := range domain.Intervals {
		t := unified
		if iv != domain.Hourly {
			var err error
			t, err = domain.Resample(unified, iv, tail)
			if err != nil {
				return Report{}, fmt.Errorf("analyze %s: %w", iv, err)
			}
		}
		for _, method := range Methods {
			m, err := Correlate(t, method)
			if err != nil {
				return Report{}, fmt.Errorf("analyze %s %s: %w", iv, method, err)
			}
			r.Results = append(r.Results, Result{Interval: iv, Method: method, Rows: t.Len(), Matrix: m})
		}
	}
	return r, nil
}

// Result returns the matrix for the given interval and method.
func (r Report) Result(iv domain.Interval, method Method) (Result, bool) {
	for _, res := range r.Results {
		if res.Interval == iv && res.Method == method {
			return res, true
		}
	}
	return Result{}, false
}

// Text renders the report for a terminal, grouped by interval.
func (r Report) Text() string {
	var b strings.Builder
	b.WriteString("CORRELATION MATRICES\n")
	if !r.Start.IsZero() {
		fmt.Fprintf(&b, "window %s .. %s\n", r.Start.Format(time.DateTime), r.End.Format(time.DateTime))
	}

	var current domain.Interval
	for _, res := range r.Results {
		if res.Interval != current {
			current = res.Interval
			fmt.Fprintf(&b, "\n%s CORRELATIONS (%d rows)\n", strings.ToUpper(string(current)), res.Rows)
		}
		b.WriteString(res.Method.Title())
		b.WriteString("\n")
		writeMatrix(&b, res.Matrix)
	}
	return b.String()
}

func writeMatrix(b *strings.Builder, m Matrix) {
	width := 10
	for _, c := range m.Columns {
		width = max(width, len(c)+1)
	}
	fmt.Fprintf(b, "%*s", width, "")
	for _, c := range m.Columns {
		fmt.Fprintf(b, "%*s", width, c)
	}
	b.WriteString("\n")
	for i, c := range m.Columns {
		fmt.Fprintf(b, "%-*s", width, c)
		for _, v := range m.Values[i] {
			if math.IsNaN(v) {
				fmt.Fprintf(b, "%*s", width, "NaN")
				continue
			}
			fmt.Fprintf(b, "%*.6f", width, v)
		}
		b.WriteString("\n")
	}
}
