package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/covid-alberta-etl/internal/config"
	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
	"github.com/couchcryptid/covid-alberta-etl/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
)

// SectionCombined labels messages carrying rows of the combined report.
const SectionCombined = "combined"

// RowMessage is the JSON value of a published report row.
type RowMessage struct {
	RunID   string              `json:"run_id"`
	Section string              `json:"section"`
	Date    string              `json:"date"`
	Values  map[string]*float64 `json:"values"`
}

// Writer publishes the combined report to a Kafka topic, one message per date.
// It implements pipeline.Loader.
type Writer struct {
	writer  *kafkago.Writer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic. Messages are
// hashed by key so every row for a date lands on the same partition.
func NewWriter(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, metrics: metrics, logger: logger}
}

// Name identifies the loader in logs.
func (w *Writer) Name() string { return "kafka" }

// Load serializes and publishes every combined-report row in a single
// WriteMessages call.
func (w *Writer) Load(ctx context.Context, snap domain.Snapshot) error {
	if snap.Combined == nil || snap.Combined.Len() == 0 {
		return nil
	}
	msgs, err := serializeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	w.metrics.MessagesProduced.Add(float64(len(msgs)))
	w.logger.Info("snapshot published", "run_id", snap.RunID, "topic", w.writer.Topic, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeSnapshot(snap domain.Snapshot) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, snap.Combined.Len())
	for i := range msgs {
		msg, err := serializeToMessage(snap, i)
		if err != nil {
			return nil, err
		}
		msgs[i] = msg
	}
	return msgs, nil
}

// serializeToMessage marshals row i of the combined report into a Kafka message.
func serializeToMessage(snap domain.Snapshot, i int) (kafkago.Message, error) {
	table := snap.Combined
	date := table.Index()[i].Format(domain.DateLayout)

	row := RowMessage{
		RunID:   snap.RunID,
		Section: SectionCombined,
		Date:    date,
		Values:  make(map[string]*float64, len(table.Columns())),
	}
	for _, col := range table.Columns() {
		v := table.Value(i, col)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			row.Values[col] = nil
			continue
		}
		row.Values[col] = &v
	}

	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report row %s: %w", date, err)
	}
	return kafkago.Message{
		Key:   []byte(date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(snap.RunID)},
			{Key: "section", Value: []byte(SectionCombined)},
			{Key: "scraped_at", Value: []byte(snap.ScrapedAt.Format(time.RFC3339))},
		},
	}, nil
}
