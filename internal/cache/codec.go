package cache

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/golang/snappy"

	"github.com/couchcryptid/quake-mag-etl/internal/domain"
)

// ErrCorrupt is returned when a cache artifact cannot be decoded.
var ErrCorrupt = errors.New("cache artifact is corrupt")

// IndexColumn names the timestamp column of a snapshot.
const IndexColumn = "ordtime"

// timeLayout drops the fractional part when it is zero.
const timeLayout = "2006-01-02 15:04:05.999999999"

// snappyMagic starts every snappy framed stream.
var snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")

// Encode writes t as CSV: the timestamp column followed by every value column.
// Floats use the shortest representation that round-trips; NaN is an empty cell.
func Encode(w io.Writer, t domain.Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{IndexColumn}, t.Columns...)); err != nil {
		return err
	}
	row := make([]string, len(t.Columns)+1)
	for i, ts := range t.Index {
		row[0] = ts.UTC().Format(timeLayout)
		for c := range t.Columns {
			row[c+1] = formatFloat(t.Data[c][i])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode reads a snapshot written by Encode, snappy framed or not.
func Decode(r io.Reader) (domain.Table, error) {
	br := bufio.NewReader(r)
	if head, _ := br.Peek(len(snappyMagic)); bytes.Equal(head, snappyMagic) {
		return decodeCSV(snappy.NewReader(br))
	}
	return decodeCSV(br)
}

func decodeCSV(r io.Reader) (domain.Table, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return domain.Table{}, fmt.Errorf("%w: read header: %w", ErrCorrupt, err)
	}
	if len(header) == 0 || header[0] != IndexColumn {
		return domain.Table{}, fmt.Errorf("%w: first column is not %q", ErrCorrupt, IndexColumn)
	}
	t := domain.NewTable(header[1:]...)
	values := make([]float64, len(t.Columns))

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Table{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		line, _ := cr.FieldPos(0)
		ts, err := time.Parse(timeLayout, row[0])
		if err != nil {
			return domain.Table{}, fmt.Errorf("%w: line %d: %w", ErrCorrupt, line, err)
		}
		for c := range values {
			v, err := parseFloat(row[c+1])
			if err != nil {
				return domain.Table{}, fmt.Errorf("%w: line %d: %w", ErrCorrupt, line, err)
			}
			values[c] = v
		}
		t.Append(ts, values...)
	}
	return t, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
