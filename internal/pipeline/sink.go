package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
	"github.com/couchcryptid/space-weather-etl/internal/observability"
)

// AlertSink delivers alerts to one destination.
type AlertSink interface {
	Name() string
	Publish(ctx context.Context, alerts []domain.Alert) error
}

// FanOut forwards every batch to all sinks. A failing sink does not stop the
// others; their errors are joined.
type FanOut struct {
	sinks   []AlertSink
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewFanOut creates a FanOut over sinks.
func NewFanOut(metrics *observability.Metrics, logger *slog.Logger, sinks ...AlertSink) *FanOut {
	return &FanOut{sinks: sinks, metrics: metrics, logger: logger}
}

func (f *FanOut) Name() string {
	return "fanout"
}

// Publish delivers alerts to each sink in order.
func (f *FanOut) Publish(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	var errs []error
	for _, s := range f.sinks {
		if err := s.Publish(ctx, alerts); err != nil {
			f.metrics.AlertsPublished.WithLabelValues(s.Name(), "error").Add(float64(len(alerts)))
			f.logger.Error("alert sink failed", "sink", s.Name(), "alerts", len(alerts), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		f.metrics.AlertsPublished.WithLabelValues(s.Name(), "success").Add(float64(len(alerts)))
	}
	return errors.Join(errs...)
}

// LogSink writes each alert to the structured log.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string {
	return "log"
}

func (s *LogSink) Publish(_ context.Context, alerts []domain.Alert) error {
	for _, a := range alerts {
		attrs := []any{
			"id", a.ID,
			"reason", a.Reason,
			"severity", a.Severity,
			"timestamp", a.Timestamp,
			"source", a.Source,
		}
		if a.EtaHours != nil {
			attrs = append(attrs, "eta_hours", *a.EtaHours)
		}
		s.logger.Warn("space weather alert", attrs...)
	}
	return nil
}
