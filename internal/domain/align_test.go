package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourlySeries(column string, start, end time.Time, value func(i int) float64) Table {
	t := NewTable(column)
	for i, ts := 0, start; !ts.After(end); i, ts = i+1, ts.Add(time.Hour) {
		t.Append(ts, value(i))
	}
	return t
}

func TestAlign_OverlapWindow(t *testing.T) {
	left := hourlySeries("ht", at(2000, 1, 1, 0, 0), at(2000, 1, 3, 0, 0), func(i int) float64 { return float64(i) })
	right := hourlySeries("mag", at(2000, 1, 2, 0, 0), at(2000, 1, 4, 0, 0), func(i int) float64 { return float64(i) / 10 })

	out, err := Align(left, right, Hourly, TailForwardFill)
	require.NoError(t, err)

	first, last, ok := out.Span()
	require.True(t, ok)
	assert.Equal(t, at(2000, 1, 2, 0, 0), first)
	assert.Equal(t, at(2000, 1, 3, 0, 0), last)
	assert.Equal(t, 25, out.Len())
	assert.Equal(t, []string{"ht", "mag"}, out.Columns)
	require.NoError(t, out.Validate())

	// Left row 24 is 2000-01-02 00:00, right row 0 is the same bucket.
	assert.Equal(t, []float64{24, 0}, out.Row(0))
	assert.Equal(t, []float64{48, 2.4}, out.Row(24))
}

func TestAlign_SelfIsIdentity(t *testing.T) {
	src := hourlySeries("a", at(2000, 1, 1, 0, 0), at(2000, 1, 2, 0, 0), func(i int) float64 { return float64(i * i) })

	out, err := Align(src, src, Hourly, TailForwardFill)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "a" + CollisionSuffix}, out.Columns)
	require.Equal(t, src.Len(), out.Len())
	assert.Equal(t, src.Index, out.Index)
	assert.Equal(t, src.Data[0], out.Data[0])
	assert.Equal(t, src.Data[0], out.Data[1])
}

func TestAlign_MagnetometerAndQuakeColumns(t *testing.T) {
	mag := NewTable(MagnetometerColumns...)
	mag.Append(at(1990, 1, 1, 0, 5), 1, 2, 3, 4)
	mag.Append(at(1990, 1, 1, 1, 5), 5, 6, 7, 8)
	quakes := NewTable(QuakeColumns...)
	quakes.Append(at(1990, 1, 1, 0, 30), 4.5)
	quakes.Append(at(1990, 1, 1, 1, 30), 5.5)

	out, err := Align(mag, quakes, Hourly, TailForwardFill)
	require.NoError(t, err)

	assert.Equal(t, []string{ColumnHP, ColumnHE, ColumnHN, ColumnHT, ColumnMagnitude}, out.Columns)
	assert.Equal(t, []float64{1, 2, 3, 4, 4.5}, out.Row(0))
	assert.Equal(t, []float64{5, 6, 7, 8, 5.5}, out.Row(1))
}

func TestAlign_NoOverlap(t *testing.T) {
	left := hourlySeries("x", at(2000, 1, 1, 0, 0), at(2000, 1, 1, 5, 0), func(int) float64 { return 1 })
	right := hourlySeries("y", at(2000, 1, 2, 0, 0), at(2000, 1, 2, 5, 0), func(int) float64 { return 2 })

	out, err := Align(left, right, Hourly, TailForwardFill)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, []string{"x", "y"}, out.Columns)
}

func TestAlign_EmptyInput(t *testing.T) {
	left := hourlySeries("x", at(2000, 1, 1, 0, 0), at(2000, 1, 1, 5, 0), func(int) float64 { return 1 })

	out, err := Align(left, NewTable("y"), Daily, TailForwardFill)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, []string{"x", "y"}, out.Columns)
}

func TestAlign_EveryIntervalSharesGrid(t *testing.T) {
	left := hourlySeries("x", at(2003, 2, 1, 0, 0), at(2003, 3, 15, 0, 0), func(i int) float64 { return float64(i % 7) })
	right := hourlySeries("y", at(2003, 2, 10, 3, 0), at(2003, 4, 1, 0, 0), func(i int) float64 { return float64(i % 5) })

	for _, iv := range Intervals {
		t.Run(iv.String(), func(t *testing.T) {
			out, err := Align(left, right, iv, TailForwardFill)
			require.NoError(t, err)
			require.NoError(t, out.Validate())
			require.NotZero(t, out.Len())
			for _, ts := range out.Index {
				assert.True(t, ts.Equal(iv.Bucket(ts)))
			}
		})
	}
}

func TestAlign_UnknownInterval(t *testing.T) {
	_, err := Align(NewTable("x"), NewTable("y"), Interval("yearly"), TailForwardFill)
	require.Error(t, err)
}
