package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/quake-mag-etl/internal/domain"
	"github.com/couchcryptid/quake-mag-etl/internal/observability"
)

// MagnetometerReader yields raw magnetometer rows.
type MagnetometerReader interface {
	Load(ctx context.Context) ([]domain.MagRecord, error)
	Fingerprint(ctx context.Context) (string, error)
}

// CatalogReader yields raw earthquake catalog rows.
type CatalogReader interface {
	Load(ctx context.Context) ([]domain.QuakeRecord, error)
	Fingerprint(ctx context.Context) (string, error)
}

// MagnetometerSource implements Source: raw load, clean, index by time.
type MagnetometerSource struct {
	reader  MagnetometerReader
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewMagnetometerSource wraps a raw reader.
func NewMagnetometerSource(r MagnetometerReader, logger *slog.Logger, metrics *observability.Metrics) *MagnetometerSource {
	return &MagnetometerSource{reader: r, logger: logger, metrics: metrics}
}

func (s *MagnetometerSource) Dataset() string { return domain.DatasetMagnetometer }

func (s *MagnetometerSource) Fingerprint(ctx context.Context) (string, error) {
	return s.reader.Fingerprint(ctx)
}

func (s *MagnetometerSource) Load(ctx context.Context) (domain.Table, error) {
	records, err := s.reader.Load(ctx)
	if err != nil {
		return domain.Table{}, err
	}
	t, stats, err := domain.CleanMagnetometer(records)
	if err != nil {
		return domain.Table{}, fmt.Errorf("clean magnetometer: %w", err)
	}
	recordClean(s.logger, s.metrics, s.Dataset(), "sentinel", stats)
	return domain.IndexByTime(t), nil
}

// QuakeSource implements Source: raw load, cutoff filter, index by time.
type QuakeSource struct {
	reader     CatalogReader
	cutoffYear int
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewQuakeSource wraps a raw catalog reader. Rows at or before cutoffYear are dropped.
func NewQuakeSource(r CatalogReader, cutoffYear int, logger *slog.Logger, metrics *observability.Metrics) *QuakeSource {
	return &QuakeSource{reader: r, cutoffYear: cutoffYear, logger: logger, metrics: metrics}
}

func (s *QuakeSource) Dataset() string { return domain.DatasetQuake }

func (s *QuakeSource) Fingerprint(ctx context.Context) (string, error) {
	fp, err := s.reader.Fingerprint(ctx)
	if err != nil {
		return "", err
	}
	// The cutoff changes the cleaned table, so it is part of the identity.
	return fmt.Sprintf("%s|cutoff=%d", fp, s.cutoffYear), nil
}

func (s *QuakeSource) Load(ctx context.Context) (domain.Table, error) {
	records, err := s.reader.Load(ctx)
	if err != nil {
		return domain.Table{}, err
	}
	t, stats, err := domain.CleanQuakes(records, s.cutoffYear)
	if err != nil {
		return domain.Table{}, fmt.Errorf("clean quakes: %w", err)
	}
	recordClean(s.logger, s.metrics, s.Dataset(), "cutoff", stats)
	return domain.IndexByTime(t), nil
}

func recordClean(logger *slog.Logger, metrics *observability.Metrics, dataset, reason string, stats domain.CleanStats) {
	metrics.RowsLoaded.WithLabelValues(dataset).Add(float64(stats.Kept))
	metrics.RowsDropped.WithLabelValues(dataset, reason).Add(float64(stats.Dropped))
	logger.Info("rows cleaned",
		"dataset", dataset,
		"input", stats.Input,
		"kept", stats.Kept,
		"dropped", stats.Dropped,
		"reason", reason,
	)
}
