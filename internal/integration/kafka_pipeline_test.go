//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/adapter/kafka"
	"github.com/couchcryptid/space-weather-etl/internal/domain"
	"github.com/couchcryptid/space-weather-etl/internal/observability"
	"github.com/couchcryptid/space-weather-etl/internal/pipeline"
	"github.com/couchcryptid/space-weather-etl/internal/simulate"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceTopic  = "test-cme-submissions"
	testInsightTopic = "test-cme-insights"
	testAlertTopic   = "test-space-weather-alerts"
)

var baseDate = time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)

func readerConfig(broker, group string) kafka.ReaderConfig {
	return kafka.ReaderConfig{
		Brokers:       []string{broker},
		Topic:         testSourceTopic,
		GroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		FlushInterval: 5 * time.Second,
	}
}

func produce(ctx context.Context, t *testing.T, broker string, msgs ...kafkago.Message) {
	t.Helper()
	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, msgs...))
}

// TestKafkaReaderWriter verifies the adapter layer: a submission round-trips
// through kafka.Reader, the transformer and kafka.Writer.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testInsightTopic)

	payload := []byte(`{"activityID":"2024-05-10T16:36:00-CME-001","startTime":"2024-05-10T16:36Z","latitude":-12,"longitude":45,"speed":"1100","halfAngle":65}`)
	produce(ctx, t, broker, kafkago.Message{Key: []byte("cme-1"), Value: payload, Time: baseDate})

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned.
	reader := kafka.NewReader(readerConfig(broker, "test-reader"), discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawEvent
	for len(batch) == 0 {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("cme-1"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit)
	require.NoError(t, raw.Commit(ctx))

	insight, err := pipeline.NewTransformer(discardLogger()).Transform(ctx, raw)
	require.NoError(t, err)
	out, err := domain.SerializeInsight(insight)
	require.NoError(t, err)

	writer := kafka.NewWriter([]string{broker}, testInsightTopic, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, []domain.OutputEvent{out}))

	msg := readOne(ctx, t, newConsumer(t, broker, testInsightTopic, "test-insights"))
	assert.Equal(t, "2024-05-10T16:36:00-CME-001", msg.Key)
	assert.Equal(t, domain.ClassHigh, msg.Headers["insight_class"])
	assert.Equal(t, "G3", msg.Headers["storm_scale"])
	_, err = time.Parse(time.RFC3339, msg.Headers["generated_at"])
	assert.NoError(t, err, "generated_at should be valid RFC3339")

	var got domain.Insight
	msg.decode(t, &got)
	assert.Equal(t, domain.DirectionEast, got.Direction.Label)
	require.NotNil(t, got.Event.Speed)
	assert.InDelta(t, 1100, *got.Event.Speed, 0)
}

// TestPipelineEndToEnd runs the full loop against seeded synthetic
// submissions and checks every insight and every high-severity alert arrives.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testInsightTopic)
	createTopic(t, broker, testAlertTopic)

	gen := simulate.New(42)
	events := make([]domain.CMEEvent, 20)
	msgs := make([]kafkago.Message, len(events))
	wantHigh := 0
	for i := range events {
		e := gen.CMEEvent()
		e.ID = fmt.Sprintf("synthetic-cme-%03d", i)
		e.StartTime = baseDate.Add(time.Duration(i) * time.Hour)
		events[i] = e
		if domain.AlertFromInsight(domain.BuildInsight(e)).IsHighSeverity() {
			wantHigh++
		}

		payload, err := json.Marshal(e)
		require.NoError(t, err)
		msgs[i] = kafkago.Message{Key: []byte(e.ID), Value: payload, Time: baseDate}
	}
	produce(ctx, t, broker, msgs...)

	reader := kafka.NewReader(readerConfig(broker, "test-pipeline"), discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	insightWriter := kafka.NewWriter([]string{broker}, testInsightTopic, discardLogger())
	t.Cleanup(func() { _ = insightWriter.Close() })
	alertWriter := kafka.NewWriter([]string{broker}, testAlertTopic, discardLogger())
	t.Cleanup(func() { _ = alertWriter.Close() })

	metrics := observability.NewMetricsForTesting()
	fanOut := pipeline.NewFanOut(metrics, discardLogger(), alertWriter)
	p := pipeline.New(reader, pipeline.NewTransformer(discardLogger()), insightWriter, discardLogger(), metrics, 50).
		WithAlerts(fanOut)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	insights := newConsumer(t, broker, testInsightTopic, fmt.Sprintf("test-insights-%d", time.Now().UnixNano()))
	seen := map[string]bool{}
	for len(seen) < len(events) {
		msg := readOne(ctx, t, insights)
		var in domain.Insight
		msg.decode(t, &in)
		assert.Equal(t, msg.Key, in.ID)
		assert.NotEmpty(t, msg.Headers["insight_class"])
		assert.NotEmpty(t, msg.Headers["storm_scale"])
		seen[in.ID] = true
	}
	for _, e := range events {
		assert.True(t, seen[e.ID], "missing insight for %s", e.ID)
	}

	alerts := newConsumer(t, broker, testAlertTopic, fmt.Sprintf("test-alerts-%d", time.Now().UnixNano()))
	for range wantHigh {
		msg := readOne(ctx, t, alerts)
		var a domain.Alert
		msg.decode(t, &a)
		assert.True(t, a.IsHighSeverity(), "alert %s severity %s", a.ID, a.Severity)
		assert.Equal(t, a.Severity, msg.Headers["severity"])
	}
	assertNoMore(ctx, t, alerts, 5*time.Second)

	pipelineCancel()
	require.NoError(t, <-errCh)
	require.NoError(t, p.CheckReadiness(ctx))
}

// TestPipelineTransformError verifies that a poison submission is skipped and
// the pipeline keeps processing valid ones.
func TestPipelineTransformError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testInsightTopic)

	produce(ctx, t, broker,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{"), Time: baseDate},
		kafkago.Message{Key: []byte("good"), Value: []byte(`{"id":"good","speed":450}`), Time: baseDate},
	)

	reader := kafka.NewReader(readerConfig(broker, "test-poison"), discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter([]string{broker}, testInsightTopic, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(reader, pipeline.NewTransformer(discardLogger()), writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := newConsumer(t, broker, testInsightTopic, fmt.Sprintf("test-sink-%d", time.Now().UnixNano()))
	msg := readOne(ctx, t, consumer)
	assert.Equal(t, "good", msg.Key)
	assertNoMore(ctx, t, consumer, 5*time.Second)

	pipelineCancel()
	require.NoError(t, <-errCh)
}
