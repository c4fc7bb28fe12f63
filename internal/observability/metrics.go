package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "space_weather"

// Metrics holds the Prometheus counters, histograms, and gauges for the feed
// monitor and the CME submissions pipeline.
type Metrics struct {
	// CME submissions pipeline.
	MessagesConsumed prometheus.Counter
	InsightsProduced prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Feed source metrics.
	FeedFetches       *prometheus.CounterVec // labels: outcome={success,error,empty}
	FeedFetchDuration prometheus.Histogram
	FeedCache         *prometheus.CounterVec // labels: result={hit,miss,error}
	FeedFallbacks     prometheus.Counter

	// Feed analysis metrics.
	RecordsParsed     prometheus.Counter
	LinesSkipped      *prometheus.CounterVec // labels: reason
	AnomaliesDetected prometheus.Counter
	LatestWindSpeed   prometheus.Gauge
	LatestBt          prometheus.Gauge

	// Monitor loop and alert sinks.
	MonitorRunning       prometheus.Gauge
	MonitorCycleDuration prometheus.Histogram
	AlertsPublished      *prometheus.CounterVec // labels: sink, outcome={success,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total CME submissions read from the source topic.",
		}),
		InsightsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insights_produced_total",
			Help:      "Total CME insights written to the insights topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total CME submissions that could not be parsed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the submissions pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		FeedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "Solar wind feed fetches by outcome.",
		}, []string{"outcome"}),
		FeedFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_fetch_duration_seconds",
			Help:      "Solar wind feed HTTP request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		FeedCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_cache_total",
			Help:      "Feed cache lookups by result.",
		}, []string{"result"}),
		FeedFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fallbacks_total",
			Help:      "Times synthetic feed data was served because the primary source failed.",
		}),
		RecordsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_parsed_total",
			Help:      "Measurement records retained by the feed parser.",
		}),
		LinesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_skipped_total",
			Help:      "Feed data lines dropped by the parser, by reason.",
		}, []string{"reason"}),
		AnomaliesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_detected_total",
			Help:      "Anomalous readings flagged by the detector.",
		}),
		LatestWindSpeed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "latest_wind_speed_km_s",
			Help:      "Most recent solar wind speed reading.",
		}),
		LatestBt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "latest_bt_nanotesla",
			Help:      "Most recent total interplanetary magnetic field reading.",
		}),
		MonitorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitor_running",
			Help:      "1 when the feed monitor is scheduled, 0 when stopped.",
		}),
		MonitorCycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "monitor_cycle_duration_seconds",
			Help:      "Duration of one fetch-analyze-publish monitor cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		AlertsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      "Alerts delivered to sinks by sink and outcome.",
		}, []string{"sink", "outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.MessagesConsumed,
		m.InsightsProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.FeedFetches,
		m.FeedFetchDuration,
		m.FeedCache,
		m.FeedFallbacks,
		m.RecordsParsed,
		m.LinesSkipped,
		m.AnomaliesDetected,
		m.LatestWindSpeed,
		m.LatestBt,
		m.MonitorRunning,
		m.MonitorCycleDuration,
		m.AlertsPublished,
	}
}
