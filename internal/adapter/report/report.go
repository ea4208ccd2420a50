// Package report writes correlation reports to the terminal and to files.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/quake-mag-etl/internal/analysis"
	"github.com/couchcryptid/quake-mag-etl/internal/atomicfile"
	"github.com/couchcryptid/quake-mag-etl/internal/config"
)

// Console prints the text rendering of a report.
// It implements pipeline.Publisher.
type Console struct {
	w io.Writer
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Publish(_ context.Context, r analysis.Report) error {
	if _, err := io.WriteString(c.w, r.Text()); err != nil {
		return fmt.Errorf("print report: %w", err)
	}
	return nil
}

// FileWriter stores a report as JSON or YAML, replacing the file atomically.
// It implements pipeline.Publisher.
type FileWriter struct {
	path   string
	format string
	logger *slog.Logger
}

// NewFileWriter creates a FileWriter for path in the given format.
func NewFileWriter(path, format string, logger *slog.Logger) *FileWriter {
	return &FileWriter{path: path, format: format, logger: logger}
}

func (f *FileWriter) Publish(_ context.Context, r analysis.Report) error {
	data, err := Encode(r, f.format)
	if err != nil {
		return err
	}
	if err := atomicfile.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	f.logger.Info("report written", "path", f.path, "format", f.format, "matrices", len(r.Results))
	return nil
}

// Encode serializes r. Undefined coefficients become null in both formats.
func Encode(r analysis.Report, format string) ([]byte, error) {
	switch format {
	case config.FormatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal report json: %w", err)
		}
		return append(data, '\n'), nil
	case config.FormatYAML:
		data, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal report yaml: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}
