package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/quake-mag-etl/internal/analysis"
	"github.com/couchcryptid/quake-mag-etl/internal/config"
)

// Writer publishes correlation matrices to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured report topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.ReportKafkaBrokers...),
		Topic:        cfg.ReportKafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish sends one message per matrix in a single WriteMessages call.
// Messages are keyed by interval and method so a topic partition always
// carries the same matrix across runs.
func (w *Writer) Publish(ctx context.Context, r analysis.Report) error {
	if len(r.Results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(r.Results))
	for i := range r.Results {
		msg, err := serializeToMessage(r, r.Results[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish correlations: %w", err)
	}
	w.logger.Info("correlations published", "topic", w.writer.Topic, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// Message is the payload of one published matrix.
type Message struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Start       time.Time `json:"start,omitzero"`
	End         time.Time `json:"end,omitzero"`
	analysis.Result
}

// serializeToMessage marshals one report result into a Kafka message.
func serializeToMessage(r analysis.Report, res analysis.Result) (kafkago.Message, error) {
	data, err := json.Marshal(Message{
		RunID:       r.RunID,
		GeneratedAt: r.GeneratedAt,
		Start:       r.Start,
		End:         r.End,
		Result:      res,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize correlation %s: %w", res.Key(), err)
	}
	return kafkago.Message{
		Key:   []byte(res.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(r.RunID)},
			{Key: "generated_at", Value: []byte(r.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
