package rawfile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/quake-mag-etl/internal/config"
	"github.com/couchcryptid/quake-mag-etl/internal/domain"
	"github.com/couchcryptid/quake-mag-etl/internal/observability"
)

// MagnetometerFileName renders the GOES one-minute file name covering a whole
// calendar month, e.g. g08_magneto_1m_19950201_19950228.csv.
func MagnetometerFileName(station, year int, month time.Month) string {
	return fmt.Sprintf("g%02d_magneto_1m_%04d%02d01_%04d%02d%02d.csv",
		station, year, int(month), year, int(month), domain.DaysIn(year, month))
}

// MagnetometerLoader discovers and parses the monthly magnetometer files.
type MagnetometerLoader struct {
	dir       string
	startYear int
	endYear   int
	stations  []int
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewMagnetometerLoader creates a loader for the configured year range and stations.
func NewMagnetometerLoader(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *MagnetometerLoader {
	return &MagnetometerLoader{
		dir:       cfg.DataDir,
		startYear: cfg.MagStartYear,
		endYear:   cfg.MagEndYear,
		stations:  cfg.MagStations,
		logger:    logger,
		metrics:   metrics,
	}
}

// Discover returns one path per month that has a file, in chronological order.
// For each month the first station in preference order wins. Months without any
// file are skipped.
func (l *MagnetometerLoader) Discover(ctx context.Context) ([]string, error) {
	var paths []string
	for year := l.startYear; year <= l.endYear; year++ {
		for month := time.January; month <= time.December; month++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			path, err := l.findMonth(year, month)
			if err != nil {
				return nil, err
			}
			if path == "" {
				l.logger.Debug("no magnetometer file for month", "year", year, "month", int(month))
				l.metrics.FilesSkipped.Inc()
				continue
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func (l *MagnetometerLoader) findMonth(year int, month time.Month) (string, error) {
	for _, station := range l.stations {
		path := filepath.Join(l.dir, MagnetometerFileName(station, year, month))
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", nil
}

// Load parses every discovered file and concatenates the rows in file order.
func (l *MagnetometerLoader) Load(ctx context.Context) ([]domain.MagRecord, error) {
	paths, err := l.Discover(ctx)
	if err != nil {
		return nil, err
	}
	l.logger.Info("reading magnetometer files", "files", len(paths), "dir", l.dir)

	var records []domain.MagRecord
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := readFile(path, ParseMagnetometer)
		if err != nil {
			return nil, err
		}
		l.metrics.FilesRead.WithLabelValues(domain.DatasetMagnetometer).Inc()
		l.logger.Debug("magnetometer file parsed", "file", filepath.Base(path), "rows", len(recs))
		records = append(records, recs...)
	}
	return records, nil
}

// Fingerprint identifies the current set of input files.
func (l *MagnetometerLoader) Fingerprint(ctx context.Context) (string, error) {
	paths, err := l.Discover(ctx)
	if err != nil {
		return "", err
	}
	return Fingerprint(paths)
}

// CatalogLoader reads the earthquake catalog file.
type CatalogLoader struct {
	path    string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCatalogLoader creates a loader for DATA_DIR/QUAKE_CATALOG.
func NewCatalogLoader(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *CatalogLoader {
	path := cfg.QuakeCatalog
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.DataDir, path)
	}
	return &CatalogLoader{path: path, logger: logger, metrics: metrics}
}

// Load parses the catalog. A missing catalog is an error.
func (l *CatalogLoader) Load(ctx context.Context) ([]domain.QuakeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := readFile(l.path, ParseCatalog)
	if err != nil {
		return nil, err
	}
	l.metrics.FilesRead.WithLabelValues(domain.DatasetQuake).Inc()
	l.logger.Info("earthquake catalog parsed", "file", l.path, "rows", len(records))
	return records, nil
}

// Fingerprint identifies the current catalog file.
func (l *CatalogLoader) Fingerprint(_ context.Context) (string, error) {
	return Fingerprint([]string{l.path})
}

func readFile[T any](path string, parse func(r io.Reader, name string) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return parse(f, filepath.Base(path))
}

// Fingerprint hashes the base name, size and modification time of each path.
// Any change to the input set changes the result.
func Fingerprint(paths []string) (string, error) {
	h := sha256.New()
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return "", fmt.Errorf("fingerprint: %w", err)
		}
		fmt.Fprintf(h, "%s|%d|%d\n", filepath.Base(p), info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
