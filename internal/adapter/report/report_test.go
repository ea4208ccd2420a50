package report

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/quake-mag-etl/internal/analysis"
	"github.com/couchcryptid/quake-mag-etl/internal/config"
	"github.com/couchcryptid/quake-mag-etl/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testReport() analysis.Report {
	return analysis.Report{
		RunID:       "run-1",
		GeneratedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Results: []analysis.Result{{
			Interval: domain.Hourly,
			Method:   analysis.Pearson,
			Rows:     10,
			Matrix: analysis.Matrix{
				Columns: []string{"ht", "mag"},
				Values:  [][]float64{{1, 0.25}, {0.25, math.NaN()}},
			},
		}},
	}
}

func TestConsole_Publish(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsole(&buf).Publish(context.Background(), testReport()))

	assert.Contains(t, buf.String(), "HOURLY CORRELATIONS (10 rows)")
	assert.Contains(t, buf.String(), "0.250000")
	assert.Contains(t, buf.String(), "NaN")
}

func TestFileWriter_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, NewFileWriter(path, config.FormatJSON, discardLogger()).Publish(context.Background(), testReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		RunID   string `json:"run_id"`
		Results []struct {
			Interval string `json:"interval"`
			Method   string `json:"method"`
			Matrix   struct {
				Values [][]*float64 `json:"values"`
			} `json:"matrix"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "run-1", doc.RunID)
	require.Len(t, doc.Results, 1)
	assert.Equal(t, "hourly", doc.Results[0].Interval)
	assert.Equal(t, "pearson", doc.Results[0].Method)
	assert.Nil(t, doc.Results[0].Matrix.Values[1][1])
	require.NotNil(t, doc.Results[0].Matrix.Values[0][1])
	assert.Equal(t, 0.25, *doc.Results[0].Matrix.Values[0][1])
	assert.NotContains(t, string(data), `"start"`, "zero window is omitted")
}

func TestFileWriter_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, NewFileWriter(path, config.FormatYAML, discardLogger()).Publish(context.Background(), testReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "run-1", doc["run_id"])
	assert.Contains(t, string(data), "null")
	assert.NotContains(t, string(data), "start:")
}

func TestEncode_UnknownFormat(t *testing.T) {
	_, err := Encode(testReport(), "xml")
	require.Error(t, err)
}
