// Package plot renders PNG charts of the unified hourly table.
package plot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/quake-mag-etl/internal/config"
	"github.com/couchcryptid/quake-mag-etl/internal/domain"
)

// Renderer draws the magnitude series, the magnetometer channels and one
// scatter plot per channel against magnitude.
type Renderer struct {
	dir    string
	width  int
	height int
	logger *slog.Logger
}

// NewRenderer creates a renderer writing into cfg.PlotDir.
func NewRenderer(cfg *config.Config, logger *slog.Logger) *Renderer {
	return &Renderer{dir: cfg.PlotDir, width: cfg.PlotWidth, height: cfg.PlotHeight, logger: logger}
}

// Render writes every chart and returns the file paths. An empty table is
// skipped with a warning.
func (r *Renderer) Render(ctx context.Context, t domain.Table) ([]string, error) {
	if t.Len() == 0 {
		r.logger.Warn("no aligned rows, skipping plots")
		return nil, nil
	}
	if err := registerFont(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}

	xs := make([]float64, t.Len())
	for i, ts := range t.Index {
		xs[i] = float64(ts.Unix())
	}

	var written []string
	save := func(name string, c *chart) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(r.dir, name)
		if err := c.save(path); err != nil {
			return err
		}
		written = append(written, path)
		r.logger.Debug("plot written", "path", path)
		return nil
	}

	if mag, ok := t.Column(domain.ColumnMagnitude); ok {
		c := newChart(r.width, r.height, "Earthquake magnitude")
		c.xTimeAxis = true
		c.setBounds(xs, mag)
		c.axes("time", domain.ColumnMagnitude)
		c.polyline(xs, mag, palette[0])
		if err := save("magnitude.png", c); err != nil {
			return written, err
		}
	}

	var channels [][]float64
	var names []string
	for _, name := range domain.MagnetometerColumns {
		if col, ok := t.Column(name); ok {
			channels = append(channels, col)
			names = append(names, name)
		}
	}
	if len(channels) > 0 {
		c := newChart(r.width, r.height, "Magnetometer channels")
		c.xTimeAxis = true
		c.setBounds(xs, channels...)
		c.axes("time", "nT")
		for i, col := range channels {
			color := palette[(i+1)%len(palette)]
			c.polyline(xs, col, color)
			c.legend(names[i], color)
		}
		if err := save("channels.png", c); err != nil {
			return written, err
		}
	}

	if mag, ok := t.Column(domain.ColumnMagnitude); ok {
		for _, name := range []string{domain.ColumnHT, domain.ColumnHE, domain.ColumnHN, domain.ColumnHP} {
			col, ok := t.Column(name)
			if !ok {
				continue
			}
			c := newChart(r.width, r.height, fmt.Sprintf("Magnitude vs %s", name))
			c.setBounds(col, mag)
			c.axes(name, domain.ColumnMagnitude)
			c.points(col, mag, palette[0])
			if err := save(fmt.Sprintf("mag_vs_%s.png", name), c); err != nil {
				return written, err
			}
		}
	}

	r.logger.Info("plots rendered", "dir", r.dir, "files", len(written))
	return written, nil
}
