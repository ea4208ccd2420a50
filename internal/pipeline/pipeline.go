package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-mag-etl/internal/analysis"
	"github.com/couchcryptid/quake-mag-etl/internal/cache"
	"github.com/couchcryptid/quake-mag-etl/internal/domain"
	"github.com/couchcryptid/quake-mag-etl/internal/observability"
)

// Source produces a cleaned, time-indexed table for one dataset.
type Source interface {
	Dataset() string
	Fingerprint(ctx context.Context) (string, error)
	Load(ctx context.Context) (domain.Table, error)
}

// Cache serves a table by key, calling load when it has no fresh copy.
type Cache interface {
	Load(ctx context.Context, key, fingerprint string, load cache.LoaderFunc) (domain.Table, error)
}

// Publisher delivers a finished report.
type Publisher interface {
	Publish(ctx context.Context, r analysis.Report) error
}

// Renderer draws charts of the unified table.
type Renderer interface {
	Render(ctx context.Context, t domain.Table) ([]string, error)
}

// Pipeline runs one batch: load both datasets, align them hourly, correlate,
// then hand the report to every publisher and the renderer.
type Pipeline struct {
	mag        Source
	quake      Source
	cache      Cache
	magKey     string
	quakeKey   string
	tail       domain.TailFill
	publishers []Publisher
	renderer   Renderer
	clock      clockwork.Clock
	runID      string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCache routes both sources through c under the given keys.
func WithCache(c Cache, magKey, quakeKey string) Option {
	return func(p *Pipeline) {
		p.cache = c
		p.magKey = magKey
		p.quakeKey = quakeKey
	}
}

// WithTailFill sets the policy for trailing buckets after resampling.
func WithTailFill(tail domain.TailFill) Option {
	return func(p *Pipeline) { p.tail = tail }
}

// WithPublishers adds report sinks. They run in order.
func WithPublishers(pubs ...Publisher) Option {
	return func(p *Pipeline) { p.publishers = append(p.publishers, pubs...) }
}

// WithRenderer enables plotting.
func WithRenderer(r Renderer) Option {
	return func(p *Pipeline) { p.renderer = r }
}

// WithClock sets the clock used for report timestamps and stage timings.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithRunID overrides the generated run ID.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

// New creates a Pipeline over the two sources.
func New(mag, quake Source, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		mag:     mag,
		quake:   quake,
		tail:    domain.TailForwardFill,
		clock:   clockwork.NewRealClock(),
		runID:   uuid.NewString(),
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunID identifies this pipeline's run in logs, manifests and reports.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Run executes every stage once. The first error aborts the run and is
// returned wrapped with the stage name.
func (p *Pipeline) Run(ctx context.Context) (analysis.Report, error) {
	p.logger.Info("pipeline started", "run_id", p.runID, "tail_fill", p.tail, "cache", p.cache != nil)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	var mag, quake, unified domain.Table
	var report analysis.Report

	err := p.stage(ctx, "load_magnetometer", func() (err error) {
		mag, err = p.load(ctx, p.mag, p.magKey)
		return err
	})
	if err != nil {
		return analysis.Report{}, err
	}
	err = p.stage(ctx, "load_quakes", func() (err error) {
		quake, err = p.load(ctx, p.quake, p.quakeKey)
		return err
	})
	if err != nil {
		return analysis.Report{}, err
	}

	err = p.stage(ctx, "align", func() (err error) {
		unified, err = domain.Align(mag, quake, domain.Hourly, p.tail)
		if err != nil {
			return err
		}
		p.metrics.AlignedRows.Set(float64(unified.Len()))
		if first, last, ok := unified.Span(); ok {
			p.logger.Info("datasets aligned", "rows", unified.Len(), "start", first, "end", last)
		} else {
			p.logger.Warn("datasets do not overlap, correlations will be undefined",
				"magnetometer_rows", mag.Len(), "quake_rows", quake.Len())
		}
		return nil
	})
	if err != nil {
		return analysis.Report{}, err
	}

	err = p.stage(ctx, "analyze", func() (err error) {
		report, err = analysis.Analyze(unified, p.tail)
		if err != nil {
			return err
		}
		report.RunID = p.runID
		report.GeneratedAt = p.clock.Now().UTC()
		return nil
	})
	if err != nil {
		return analysis.Report{}, err
	}

	err = p.stage(ctx, "publish", func() error {
		for _, pub := range p.publishers {
			if err := pub.Publish(ctx, report); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	if p.renderer != nil {
		err = p.stage(ctx, "plot", func() error {
			_, err := p.renderer.Render(ctx, unified)
			return err
		})
		if err != nil {
			return report, err
		}
	}

	p.logger.Info("pipeline finished", "run_id", p.runID, "matrices", len(report.Results))
	return report, nil
}

// stage runs fn after checking for cancellation and records its duration.
func (p *Pipeline) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	start := p.clock.Now()
	p.logger.Debug("stage started", "stage", name)

	err := fn()

	elapsed := p.clock.Since(start)
	p.metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		p.logger.Error("stage failed", "stage", name, "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	p.logger.Debug("stage finished", "stage", name, "elapsed", elapsed)
	return nil
}

func (p *Pipeline) load(ctx context.Context, src Source, key string) (domain.Table, error) {
	if p.cache == nil {
		return src.Load(ctx)
	}
	fp, err := src.Fingerprint(ctx)
	if err != nil {
		return domain.Table{}, fmt.Errorf("fingerprint %s: %w", src.Dataset(), err)
	}
	return p.cache.Load(ctx, key, fp, src.Load)
}
