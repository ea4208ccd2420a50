// Command validate checks the integrity of cached magnetometer and earthquake
// snapshots. It decodes each artifact, compares it with its manifest and
// verifies the cleaning and indexing guarantees the pipeline relies on.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -cache-dir data/cache \
//	  -mag-key mag.cache -quake-key quake.cache \
//	  -cutoff 1985
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/couchcryptid/quake-mag-etl/internal/cache"
	"github.com/couchcryptid/quake-mag-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// snapshot is a decoded artifact and its manifest, if any.
type snapshot struct {
	key      string
	table    domain.Table
	manifest *cache.Manifest
}

func main() {
	cacheDir := flag.String("cache-dir", "", "directory containing cache snapshots")
	magKey := flag.String("mag-key", "mag.cache", "magnetometer snapshot key")
	quakeKey := flag.String("quake-key", "quake.cache", "earthquake snapshot key")
	cutoff := flag.Int("cutoff", domain.DefaultQuakeCutoffYear, "catalog years at or before this are dropped")
	flag.Parse()

	if *cacheDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*cacheDir, *magKey, *quakeKey, *cutoff))
}

func run(cacheDir, magKey, quakeKey string, cutoff int) int {
	store := cache.NewStore(cacheDir, slog.New(slog.DiscardHandler), nil)

	fmt.Println("=== Cache Integrity Validation ===")
	fmt.Println()

	mag, err := loadSnapshot(store, magKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load %s: %v\n", magKey, err)
		return 1
	}
	quake, err := loadSnapshot(store, quakeKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load %s: %v\n", quakeKey, err)
		return 1
	}

	phases := []*phase{
		validateManifests(mag, quake),
		validateMagnetometer(mag),
		validateQuakes(quake, cutoff),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d magnetometer, %d earthquake\n", mag.table.Len(), quake.table.Len())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadSnapshot(store *cache.Store, key string) (snapshot, error) {
	f, err := os.Open(store.Path(key))
	if err != nil {
		return snapshot{}, err
	}
	defer f.Close()

	t, err := cache.Decode(f)
	if err != nil {
		return snapshot{}, err
	}
	s := snapshot{key: key, table: t}

	m, err := store.Manifest(key)
	switch {
	case err == nil:
		s.manifest = &m
	case !errors.Is(err, fs.ErrNotExist):
		return snapshot{}, err
	}
	return s, nil
}

// ── Phases ──

func validateManifests(snaps ...snapshot) *phase {
	p := &phase{name: "Manifest agreement"}
	for _, s := range snaps {
		if s.manifest == nil {
			p.errorf("%s: no manifest, snapshot will be rebuilt on next run", s.key)
			continue
		}
		m := s.manifest
		if m.Key != s.key {
			p.errorf("%s: manifest key is %q", s.key, m.Key)
		}
		if m.Rows != s.table.Len() {
			p.errorf("%s: manifest rows %d, artifact rows %d", s.key, m.Rows, s.table.Len())
		}
		if !slices.Equal(m.Columns, s.table.Columns) {
			p.errorf("%s: manifest columns %v, artifact columns %v", s.key, m.Columns, s.table.Columns)
		}
	}
	return p
}

func validateMagnetometer(s snapshot) *phase {
	p := &phase{name: "Magnetometer cleaning and index"}
	checkShape(p, s, domain.MagnetometerColumns)
	checkSorted(p, s)

	for c, name := range s.table.Columns {
		for i, v := range s.table.Data[c] {
			switch {
			case v == domain.InvalidReading:
				p.errorf("row %d: %s holds the invalid sentinel", i+1, name)
			case math.IsNaN(v) || math.IsInf(v, 0):
				p.errorf("row %d: %s is %v", i+1, name, v)
			}
		}
	}
	return p
}

func validateQuakes(s snapshot, cutoff int) *phase {
	p := &phase{name: "Earthquake cutoff and index"}
	checkShape(p, s, domain.QuakeColumns)
	checkSorted(p, s)

	for i, ts := range s.table.Index {
		if ts.Year() <= cutoff {
			p.errorf("row %d: %s is not after cutoff year %d", i+1, ts.Format(domain.TimeTagLayout), cutoff)
		}
		if ts.Nanosecond() != 0 {
			p.errorf("row %d: %s has fractional seconds", i+1, ts.Format(domain.TimeTagLayout))
		}
	}
	return p
}

func checkShape(p *phase, s snapshot, want []string) {
	if !slices.Equal(s.table.Columns, want) {
		p.errorf("%s: columns %v, want %v", s.key, s.table.Columns, want)
	}
	if err := s.table.Validate(); err != nil {
		p.errorf("%s: %v", s.key, err)
	}
}

func checkSorted(p *phase, s snapshot) {
	if !domain.IsSorted(s.table) {
		p.errorf("%s: index is not sorted by time", s.key)
	}
}
