package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces messages to a Kafka topic.
// It implements pipeline.BatchLoader and pipeline.AlertSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes already-serialized events in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msgs[i] = toMessage(events[i])
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages to %s: %w", len(msgs), w.writer.Topic, err)
	}
	return nil
}

// Name identifies this sink in logs and metrics.
func (w *Writer) Name() string {
	return "kafka"
}

// Publish serializes alerts and writes them keyed by alert ID.
func (w *Writer) Publish(ctx context.Context, alerts []domain.Alert) error {
	events := make([]domain.OutputEvent, 0, len(alerts))
	for _, a := range alerts {
		ev, err := serializeAlert(a)
		if err != nil {
			return err
		}
		events = append(events, ev)
	}
	return w.LoadBatch(ctx, events)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func toMessage(ev domain.OutputEvent) kafkago.Message {
	headers := make([]kafkago.Header, 0, len(ev.Headers))
	for k, v := range ev.Headers {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return kafkago.Message{
		Key:     ev.Key,
		Value:   ev.Value,
		Headers: headers,
	}
}

// serializeAlert marshals an Alert into an output event with routing headers.
func serializeAlert(a domain.Alert) (domain.OutputEvent, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("serialize alert: %w", err)
	}
	return domain.OutputEvent{
		Key:   []byte(a.ID),
		Value: data,
		Headers: map[string]string{
			"severity":     a.Severity,
			"generated_at": a.Timestamp.UTC().Format(time.RFC3339),
		},
	}, nil
}
