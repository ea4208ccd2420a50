package main

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	kafkaadapter "github.com/couchcryptid/quake-mag-etl/internal/adapter/kafka"
	"github.com/couchcryptid/quake-mag-etl/internal/adapter/plot"
	"github.com/couchcryptid/quake-mag-etl/internal/adapter/rawfile"
	"github.com/couchcryptid/quake-mag-etl/internal/adapter/report"
	"github.com/couchcryptid/quake-mag-etl/internal/analysis"
	"github.com/couchcryptid/quake-mag-etl/internal/cache"
	"github.com/couchcryptid/quake-mag-etl/internal/config"
	"github.com/couchcryptid/quake-mag-etl/internal/observability"
	"github.com/couchcryptid/quake-mag-etl/internal/pipeline"
)

// processMetrics registers the metrics once per process.
var processMetrics = sync.OnceValue(observability.NewMetrics)

func runPipeline(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg)
	_, err = execute(cmd.Context(), cmd.OutOrStdout(), cfg, logger)
	return err
}

// execute wires the sources, cache and sinks described by cfg and runs the
// pipeline once. Extra publishers receive the report after the configured ones.
func execute(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger, extra ...pipeline.Publisher) (analysis.Report, error) {
	metrics := processMetrics()
	clock := clockwork.NewRealClock()
	runID := uuid.NewString()

	mag := pipeline.NewMagnetometerSource(rawfile.NewMagnetometerLoader(cfg, logger, metrics), logger, metrics)
	quake := pipeline.NewQuakeSource(rawfile.NewCatalogLoader(cfg, logger, metrics), cfg.QuakeCutoffYear, logger, metrics)

	popts := []pipeline.Option{
		pipeline.WithClock(clock),
		pipeline.WithRunID(runID),
		pipeline.WithTailFill(cfg.TailFill),
		pipeline.WithPublishers(report.NewConsole(out)),
	}
	if cfg.CacheEnabled {
		store := newStore(cfg, logger, clock, runID)
		popts = append(popts, pipeline.WithCache(store, cfg.MagCacheKey, cfg.QuakeCacheKey))
	} else {
		logger.Info("cache disabled")
	}
	if cfg.ReportPath != "" {
		popts = append(popts, pipeline.WithPublishers(report.NewFileWriter(cfg.ReportPath, cfg.ReportFormat, logger)))
	}
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		popts = append(popts, pipeline.WithPublishers(writer))
		logger.Info("kafka publishing enabled", "brokers", cfg.ReportKafkaBrokers, "topic", cfg.ReportKafkaTopic)
	}
	if len(extra) > 0 {
		popts = append(popts, pipeline.WithPublishers(extra...))
	}
	if cfg.PlotDir != "" {
		popts = append(popts, pipeline.WithRenderer(plot.NewRenderer(cfg, logger)))
	}

	rep, runErr := pipeline.New(mag, quake, logger, metrics, popts...).Run(ctx)

	if cfg.MetricsTextfile != "" {
		if err := observability.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Error("metrics textfile write failed", "error", err)
		}
	}
	return rep, runErr
}

func newStore(cfg *config.Config, logger *slog.Logger, clock clockwork.Clock, runID string) *cache.Store {
	return cache.NewStore(cfg.CacheDir, logger, processMetrics(),
		cache.WithCompression(cfg.CacheCompress),
		cache.WithClock(clock),
		cache.WithRunID(runID),
	)
}
