package observability

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "info", "json").Info("hello", "rows", 3)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"rows":3`)

	buf.Reset()
	newLogger(&buf, "info", "text").Info("hello", "rows", 3)
	assert.Contains(t, buf.String(), "msg=hello")

	buf.Reset()
	newLogger(&buf, "warn", "text").Info("suppressed")
	assert.Empty(t, buf.String())
}

func TestMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(m.RowsDropped))

	m.RowsDropped.WithLabelValues("magnetometer", "sentinel").Add(4)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "quakemag_rows_dropped_total", families[0].GetName())
	assert.InDelta(t, 4, families[0].GetMetric()[0].GetCounter().GetValue(), 0)
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quakemag.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "go_goroutines")
}
