package rawfile

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/quake-mag-etl/internal/domain"
)

var (
	// ErrHeaderNotFound is returned when a magnetometer file ends before its
	// "data:" line.
	ErrHeaderNotFound = errors.New(`header terminator "data:" not found`)
	// ErrMissingColumn is returned when a required CSV column is absent.
	ErrMissingColumn = errors.New("missing required column")
)

// headerTerminator ends the free-text preamble of a GOES file.
const headerTerminator = "data:"

type parseState int

const (
	seekingHeaderEnd parseState = iota
	readingBody
)

// ParseMagnetometer reads one GOES file. Everything up to and including the
// "data:" line is skipped, the rest is CSV with a header row.
func ParseMagnetometer(r io.Reader, name string) ([]domain.MagRecord, error) {
	br := bufio.NewReader(r)
	state := seekingHeaderEnd
	lineNo := 0

	for state == seekingHeaderEnd {
		line, err := br.ReadString('\n')
		if line != "" {
			lineNo++
			if strings.TrimSpace(line) == headerTerminator {
				state = readingBody
				break
			}
		}
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: %w", name, ErrHeaderNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
	}

	body := newCSVReader(br)
	header, err := body.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: no column header after %q: %w", name, headerTerminator, ErrMissingColumn)
		}
		return nil, fmt.Errorf("parse %s header: %w", name, err)
	}
	idx, err := columnIndex(header, "time_tag", domain.ColumnHP, domain.ColumnHE, domain.ColumnHN, domain.ColumnHT)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	var records []domain.MagRecord
	for {
		row, err := body.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		line, _ := body.FieldPos(0)
		line += lineNo

		fields, err := pick(row, idx)
		if err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", name, line, err)
		}
		vals, err := parseFloats(fields[1:])
		if err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", name, line, err)
		}
		records = append(records, domain.MagRecord{
			TimeTag: fields[0],
			HP:      vals[0],
			HE:      vals[1],
			HN:      vals[2],
			HT:      vals[3],
		})
	}
	return records, nil
}

// ParseCatalog reads the earthquake catalog. The year must be a whole number;
// any other empty cell becomes NaN. Date fields are range-checked later by
// domain.CleanQuakes, which drops rows at or before the cutoff first.
func ParseCatalog(r io.Reader, name string) ([]domain.QuakeRecord, error) {
	body := newCSVReader(r)
	header, err := body.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: empty catalog: %w", name, ErrMissingColumn)
		}
		return nil, fmt.Errorf("parse %s header: %w", name, err)
	}
	idx, err := columnIndex(header, "yr", "mon", "day", "hr", "min", "sec", domain.ColumnMagnitude)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	var records []domain.QuakeRecord
	for {
		row, err := body.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		line, _ := body.FieldPos(0)

		fields, err := pick(row, idx)
		if err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", name, line, err)
		}
		rec, err := quakeRecord(fields)
		if err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", name, line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func quakeRecord(f []string) (domain.QuakeRecord, error) {
	year, err := parseWhole(f[0])
	if err != nil {
		return domain.QuakeRecord{}, fmt.Errorf("year: %w", err)
	}
	vals, err := parseFloats(f[1:])
	if err != nil {
		return domain.QuakeRecord{}, err
	}
	return domain.QuakeRecord{
		Year:      year,
		Month:     vals[0],
		Day:       vals[1],
		Hour:      vals[2],
		Minute:    vals[3],
		Second:    vals[4],
		Magnitude: vals[5],
	}, nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// columnIndex maps each wanted column to its position in header.
// Matching ignores case and surrounding whitespace.
func columnIndex(header []string, want ...string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	idx := make([]int, len(want))
	for i, w := range want {
		p, ok := pos[w]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, w)
		}
		idx[i] = p
	}
	return idx, nil
}

func pick(row []string, idx []int) ([]string, error) {
	out := make([]string, len(idx))
	for i, p := range idx {
		if p >= len(row) {
			return nil, fmt.Errorf("row has %d fields, need column %d", len(row), p+1)
		}
		out[i] = strings.TrimSpace(row[p])
	}
	return out, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		if f == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// parseWhole accepts "7" as well as "7.0", which spreadsheet exports produce.
func parseWhole(f string) (int, error) {
	if n, err := strconv.Atoi(f); err == nil {
		return n, nil
	}
	v, err := strconv.ParseFloat(f, 64)
	if err != nil || v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid integer %q", f)
	}
	return int(v), nil
}
