package pipeline

import (
	"log/slog"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
	"github.com/couchcryptid/space-weather-etl/internal/observability"
)

// Analysis is the result of one pass over a solar wind feed.
type Analysis struct {
	Source    string               `json:"source"`
	FetchedAt time.Time            `json:"fetchedAt"`
	Records   int                  `json:"records"`
	Skipped   []domain.SkippedLine `json:"skipped"`
	Latest    *domain.Reading      `json:"latest"`
	Average   *domain.Average      `json:"average"`
	Anomalies domain.AnomalyReport `json:"anomalies"`
	Insights  []domain.Insight     `json:"insights"`
	Alerts    []domain.Alert       `json:"alerts"`
}

// FeedAnalyzer turns raw feed text into readings, anomalies, insights and the
// alerts worth forwarding.
type FeedAnalyzer struct {
	windowHours float64
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewFeedAnalyzer creates a FeedAnalyzer averaging over windowHours.
func NewFeedAnalyzer(windowHours float64, metrics *observability.Metrics, logger *slog.Logger) *FeedAnalyzer {
	return &FeedAnalyzer{windowHours: windowHours, metrics: metrics, logger: logger}
}

// Analyze parses the feed and runs every analytic on it. Each flagged anomaly
// becomes an insight; only high and extreme alerts are kept.
func (a *FeedAnalyzer) Analyze(feed domain.RawFeed) Analysis {
	report := domain.ParseFeedReport(feed.Text, feed.Source)
	a.recordParse(report)

	out := Analysis{
		Source:    feed.Source,
		FetchedAt: feed.FetchedAt,
		Records:   len(report.Records),
		Skipped:   report.Skipped,
		Latest:    domain.LatestReading(report.Records),
		Average:   domain.WindowedAverage(report.Records, a.windowHours),
		Anomalies: domain.DetectAnomalies(domain.SeriesFromRecords(report.Records)),
	}
	if out.Latest != nil {
		if v := out.Latest.Speed; v != nil {
			a.metrics.LatestWindSpeed.Set(*v)
		}
		if v := out.Latest.MagneticField.Bt; v != nil {
			a.metrics.LatestBt.Set(*v)
		}
	}

	a.metrics.AnomaliesDetected.Add(float64(len(out.Anomalies.Anomalies)))
	for _, anomaly := range out.Anomalies.Anomalies {
		insight := domain.BuildInsight(eventFromAnomaly(anomaly))
		out.Insights = append(out.Insights, insight)

		alert := domain.AlertFromAnomaly(anomaly, &insight, feed.Source)
		if !alert.IsHighSeverity() {
			a.logger.Debug("alert below forwarding severity",
				"reason", alert.Reason, "severity", alert.Severity, "timestamp", alert.Timestamp)
			continue
		}
		out.Alerts = append(out.Alerts, alert)
	}

	a.logger.Info("feed analyzed",
		"source", feed.Source,
		"records", out.Records,
		"skipped", len(out.Skipped),
		"method", out.Anomalies.Method,
		"anomalies", len(out.Anomalies.Anomalies),
		"alerts", len(out.Alerts),
	)
	return out
}

func (a *FeedAnalyzer) recordParse(report domain.FeedReport) {
	a.metrics.RecordsParsed.Add(float64(len(report.Records)))
	for _, s := range report.Skipped {
		a.metrics.LinesSkipped.WithLabelValues(s.Reason).Inc()
	}
}

// eventFromAnomaly treats an anomalous reading as the arrival of a CME with the
// observed speed. Coordinates and half-angle are unknown.
func eventFromAnomaly(a domain.AnomalyRecord) domain.CMEEvent {
	return domain.CMEEvent{
		StartTime:    a.Timestamp,
		Speed:        a.MetricValues.WindSpeed,
		ParticleFlux: a.MetricValues.ParticleFlux,
	}
}
