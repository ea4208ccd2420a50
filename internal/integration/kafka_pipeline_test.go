//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/quake-mag-etl/internal/adapter/kafka"
	"github.com/couchcryptid/quake-mag-etl/internal/adapter/rawfile"
	"github.com/couchcryptid/quake-mag-etl/internal/analysis"
	"github.com/couchcryptid/quake-mag-etl/internal/cache"
	"github.com/couchcryptid/quake-mag-etl/internal/config"
	"github.com/couchcryptid/quake-mag-etl/internal/domain"
	"github.com/couchcryptid/quake-mag-etl/internal/observability"
	"github.com/couchcryptid/quake-mag-etl/internal/pipeline"
)

const testReportTopic = "test-correlations"

// startKafka runs a single-node broker and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("quake-mag-test"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// writeRawData lays out one magnetometer month and a catalog the way the
// archives ship them.
func writeRawData(t *testing.T, dir string) {
	t.Helper()
	var mag strings.Builder
	mag.WriteString(":Product: GOES magnetometer\ndata:\ntime_tag,hp,he,hn,ht\n")
	start := time.Date(1990, time.March, 1, 0, 0, 0, 0, time.UTC)
	for h := range 10 * 24 {
		ts := start.Add(time.Duration(h) * time.Hour)
		fmt.Fprintf(&mag, "%s,%d,%d,%d,%d\n", ts.Format(domain.TimeTagLayout), 90+h%7, -40+h%5, 10+h%3, 100+h%11)
	}
	name := rawfile.MagnetometerFileName(8, 1990, time.March)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(mag.String()), 0o600))

	var cat strings.Builder
	cat.WriteString("yr,mon,day,hr,min,sec,mag\n")
	cat.WriteString("1984,3,2,0,0,0,6.0\n")
	for d := 2; d <= 9; d++ {
		fmt.Fprintf(&cat, "1990,3,%d,%d,30,12.5,%.1f\n", d, d*2, 5.5+float64(d)/10)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "centennial_Y2K.csv"), []byte(cat.String()), 0o600))
}

type publishedMessage struct {
	Body    kafka.Message
	Key     string
	Headers map[string]string
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from report topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var body kafka.Message
	require.NoError(t, json.Unmarshal(msg.Value, &body), "unmarshal report message")
	return publishedMessage{Body: body, Key: string(msg.Key), Headers: headers}
}

// TestPipelinePublishesToKafka runs the whole pipeline over raw files and
// checks that every correlation matrix lands on the report topic.
func TestPipelinePublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportTopic)

	dataDir := t.TempDir()
	writeRawData(t, dataDir)

	cfg := &config.Config{
		DataDir:            dataDir,
		QuakeCatalog:       "centennial_Y2K.csv",
		MagStartYear:       1990,
		MagEndYear:         1990,
		MagStations:        []int{8},
		QuakeCutoffYear:    domain.DefaultQuakeCutoffYear,
		CacheEnabled:       true,
		CacheDir:           t.TempDir(),
		MagCacheKey:        "mag.cache",
		QuakeCacheKey:      "quake.cache",
		TailFill:           domain.TailForwardFill,
		ReportFormat:       config.FormatJSON,
		ReportKafkaBrokers: []string{broker},
		ReportKafkaTopic:   testReportTopic,
	}
	require.NoError(t, cfg.Validate())

	logger := slog.New(slog.DiscardHandler)
	metrics := observability.NewMetricsForTesting()

	writer := kafka.NewWriter(cfg, logger)
	defer writer.Close()

	mag := pipeline.NewMagnetometerSource(rawfile.NewMagnetometerLoader(cfg, logger, metrics), logger, metrics)
	quake := pipeline.NewQuakeSource(rawfile.NewCatalogLoader(cfg, logger, metrics), cfg.QuakeCutoffYear, logger, metrics)
	store := cache.NewStore(cfg.CacheDir, logger, metrics)

	p := pipeline.New(mag, quake, logger, metrics,
		pipeline.WithRunID("integration-run"),
		pipeline.WithCache(store, cfg.MagCacheKey, cfg.QuakeCacheKey),
		pipeline.WithPublishers(writer),
	)
	report, err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, report.Results, len(domain.Intervals)*len(analysis.Methods))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testReportTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	defer consumer.Close()

	for i, want := range report.Results {
		got := readPublished(ctx, t, consumer)
		assert.Equal(t, want.Key(), got.Key, "message %d key", i)
		assert.Equal(t, "integration-run", got.Headers["run_id"])
		assert.NotEmpty(t, got.Headers["generated_at"])

		assert.Equal(t, "integration-run", got.Body.RunID)
		assert.Equal(t, want.Interval, got.Body.Interval)
		assert.Equal(t, want.Method, got.Body.Method)
		assert.Equal(t, want.Rows, got.Body.Rows)
		assert.Equal(t, want.Matrix.Columns, got.Body.Matrix.Columns)
		assert.True(t, report.Start.Equal(got.Body.Start))
		assert.True(t, report.End.Equal(got.Body.End))
	}
}

// TestWriterPublishesAnalyzedReport exercises the writer on its own with a
// report built straight from an aligned table.
func TestWriterPublishesAnalyzedReport(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportTopic)

	start := time.Date(2000, time.January, 3, 0, 0, 0, 0, time.UTC)
	mag := domain.NewTable(domain.MagnetometerColumns...)
	quakes := domain.NewTable(domain.QuakeColumns...)
	for h := range 21 * 24 {
		ts := start.Add(time.Duration(h) * time.Hour)
		mag.Append(ts, float64(h%13), float64(h%7), float64(h%5), float64(h%17))
		if h%9 == 0 {
			quakes.Append(ts.Add(20*time.Minute), 5+float64(h%4)/2)
		}
	}
	unified, err := domain.Align(mag, quakes, domain.Hourly, domain.TailForwardFill)
	require.NoError(t, err)

	report, err := analysis.Analyze(unified, domain.TailForwardFill)
	require.NoError(t, err)
	report.RunID = "writer-run"
	report.GeneratedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	cfg := &config.Config{ReportKafkaBrokers: []string{broker}, ReportKafkaTopic: testReportTopic}
	writer := kafka.NewWriter(cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, writer.Publish(ctx, report))
	require.NoError(t, writer.Close())

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testReportTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	defer consumer.Close()

	keys := make([]string, 0, len(report.Results))
	for range report.Results {
		got := readPublished(ctx, t, consumer)
		assert.Equal(t, "2026-01-01T00:00:00Z", got.Headers["generated_at"])
		keys = append(keys, got.Key)
	}
	assert.Equal(t, []string{
		"hourly/pearson", "hourly/kendall", "hourly/spearman",
		"daily/pearson", "daily/kendall", "daily/spearman",
		"weekly/pearson", "weekly/kendall", "weekly/spearman",
	}, keys)
}
