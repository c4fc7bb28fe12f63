package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
	"github.com/couchcryptid/space-weather-etl/internal/observability"
)

// BatchExtractor reads up to batchSize CME submissions from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns one submission into an insight.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.Insight, error)
}

// BatchLoader writes serialized insights to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Retry backoff for extract and load failures doubles from initialBackoff up
// to maxRetryBackoff.
const (
	initialBackoff  = 200 * time.Millisecond
	maxRetryBackoff = 5 * time.Second
)

// Pipeline orchestrates the extract-transform-load loop for CME submissions.
// Submissions that fail to parse are logged, counted and committed so a
// poison message never blocks the partition. Offsets of good submissions are
// committed only after their insights are loaded.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	alerts      AlertSink
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// WithAlerts makes the pipeline forward high-severity insight alerts to sink
// after each successful load.
func (p *Pipeline) WithAlerts(sink AlertSink) *Pipeline {
	p.alerts = sink
	return p
}

// CheckReadiness returns nil once the pipeline has loaded at least one insight.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not produced any insights yet")
	}
	return nil
}

// Run executes the batch ETL loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one extract-transform-load cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = initialBackoff

	insights, ok := p.transformAndLoad(ctx, rawBatch, backoff)
	if !ok {
		return false
	}
	if len(insights) == 0 {
		return true
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	p.forwardAlerts(ctx, insights)
	return true
}

// transformAndLoad transforms each submission, loads the resulting insights
// and commits offsets. Returns the loaded insights and false if the pipeline
// should stop.
func (p *Pipeline) transformAndLoad(ctx context.Context, rawBatch []domain.RawEvent, backoff *time.Duration) ([]domain.Insight, bool) {
	insights := make([]domain.Insight, 0, len(rawBatch))
	outBatch := make([]domain.OutputEvent, 0, len(rawBatch))
	successfulRaws := make([]domain.RawEvent, 0, len(rawBatch))

	for _, raw := range rawBatch {
		insight, err := p.transformer.Transform(ctx, raw)
		if err == nil {
			var out domain.OutputEvent
			out, err = domain.SerializeInsight(insight)
			if err == nil {
				insights = append(insights, insight)
				outBatch = append(outBatch, out)
				successfulRaws = append(successfulRaws, raw)
				continue
			}
		}
		p.logger.Warn("transform failed, skipping submission",
			"error", err,
			"topic", raw.Topic,
			"partition", raw.Partition,
			"offset", raw.Offset,
		)
		p.metrics.TransformErrors.Inc()
		p.commitOffset(ctx, raw)
	}

	if len(outBatch) == 0 {
		return nil, true
	}

	if err := p.loader.LoadBatch(ctx, outBatch); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(outBatch))
		return nil, p.backoffOrStop(ctx, backoff)
	}

	p.metrics.InsightsProduced.Add(float64(len(outBatch)))

	for _, raw := range successfulRaws {
		p.commitOffset(ctx, raw)
	}

	return insights, true
}

// forwardAlerts publishes alerts for the loaded insights that reach high
// severity. Delivery failures are logged; the insights are already committed.
func (p *Pipeline) forwardAlerts(ctx context.Context, insights []domain.Insight) {
	if p.alerts == nil {
		return
	}
	var alerts []domain.Alert
	for _, in := range insights {
		if a := domain.AlertFromInsight(in); a.IsHighSeverity() {
			alerts = append(alerts, a)
		}
	}
	if len(alerts) == 0 {
		return
	}
	if err := p.alerts.Publish(ctx, alerts); err != nil {
		p.logger.Error("publish insight alerts failed", "error", err, "alerts", len(alerts))
	}
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxRetryBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
