package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
	"github.com/couchcryptid/space-weather-etl/internal/observability"
	"github.com/robfig/cron/v3"
)

// maxForwardedAlerts bounds the set of alert IDs remembered across cycles.
const maxForwardedAlerts = 4096

// FeedSource yields the current solar wind feed.
type FeedSource interface {
	Fetch(ctx context.Context) (domain.RawFeed, error)
}

// Monitor polls the feed on a cron schedule, analyzes it and publishes the
// resulting alerts.
type Monitor struct {
	source   FeedSource
	analyzer *FeedAnalyzer
	sink     AlertSink
	schedule string
	metrics  *observability.Metrics
	logger   *slog.Logger
	ready    atomic.Bool

	mu       sync.RWMutex
	last     *Analysis
	lastPoll time.Time

	// forwarded holds IDs of alerts already delivered, oldest first in
	// forwardedOrder. Overlapping feed windows re-detect the same anomalies.
	forwarded      map[string]struct{}
	forwardedOrder []string
}

// Status summarizes the most recent poll cycle for the ops endpoint.
type Status struct {
	Ready     bool            `json:"ready"`
	Schedule  string          `json:"schedule"`
	LastPoll  *time.Time      `json:"lastPoll,omitempty"`
	Source    string          `json:"source,omitempty"`
	Records   int             `json:"records"`
	Skipped   int             `json:"skipped"`
	Method    string          `json:"method,omitempty"`
	Anomalies int             `json:"anomalies"`
	Alerts    int             `json:"alerts"`
	Latest    *domain.Reading `json:"latest,omitempty"`
	Average   *domain.Average `json:"average,omitempty"`
}

// NewMonitor creates a Monitor. schedule accepts standard cron expressions and
// descriptors such as "@every 1m".
func NewMonitor(source FeedSource, analyzer *FeedAnalyzer, sink AlertSink, schedule string, metrics *observability.Metrics, logger *slog.Logger) *Monitor {
	return &Monitor{
		source:   source,
		analyzer: analyzer,
		sink:     sink,
		schedule: schedule,
		metrics:  metrics,
		logger:   logger,

		forwarded: make(map[string]struct{}),
	}
}

// CheckReadiness returns nil once a poll cycle has completed.
func (m *Monitor) CheckReadiness(_ context.Context) error {
	if !m.ready.Load() {
		return errors.New("monitor has not completed a poll cycle yet")
	}
	return nil
}

// Last returns the most recent analysis, or nil before the first cycle.
func (m *Monitor) Last() *Analysis {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Status reports the schedule and a summary of the last analysis.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Status{Ready: m.ready.Load(), Schedule: m.schedule}
	if m.last == nil {
		return st
	}
	lastPoll := m.lastPoll.UTC()
	st.LastPoll = &lastPoll
	st.Source = m.last.Source
	st.Records = m.last.Records
	st.Skipped = len(m.last.Skipped)
	st.Method = m.last.Anomalies.Method
	st.Anomalies = len(m.last.Anomalies.Anomalies)
	st.Alerts = len(m.last.Alerts)
	st.Latest = m.last.Latest
	st.Average = m.last.Average
	return st
}

// Poll runs one fetch-analyze-publish cycle. The analysis is returned even
// when publishing fails. Alerts delivered by an earlier cycle are not published
// again; a failed publish leaves its alerts eligible for the next cycle.
func (m *Monitor) Poll(ctx context.Context) (Analysis, error) {
	start := time.Now()

	feed, err := m.source.Fetch(ctx)
	if err != nil {
		return Analysis{}, fmt.Errorf("fetch feed: %w", err)
	}

	analysis := m.analyzer.Analyze(feed)

	m.mu.Lock()
	m.last = &analysis
	m.lastPoll = start
	m.mu.Unlock()

	fresh := m.unforwarded(analysis.Alerts)
	if err := m.sink.Publish(ctx, fresh); err != nil {
		return analysis, fmt.Errorf("publish alerts: %w", err)
	}
	m.markForwarded(fresh)
	if dup := len(analysis.Alerts) - len(fresh); dup > 0 {
		m.logger.Debug("suppressed already forwarded alerts", "count", dup)
	}

	m.metrics.MonitorCycleDuration.Observe(time.Since(start).Seconds())
	m.ready.Store(true)
	return analysis, nil
}

// Run polls once immediately, then on schedule until ctx is cancelled.
// Overlapping cycles are skipped.
func (m *Monitor) Run(ctx context.Context) error {
	logger := cronLogger{m.logger}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(m.schedule, func() { m.cycle(ctx) }); err != nil {
		return fmt.Errorf("schedule monitor %q: %w", m.schedule, err)
	}

	m.logger.Info("monitor started", "schedule", m.schedule)
	m.metrics.MonitorRunning.Set(1)
	defer m.metrics.MonitorRunning.Set(0)

	m.cycle(ctx)
	c.Start()

	<-ctx.Done()
	m.logger.Info("monitor stopping", "reason", ctx.Err())
	<-c.Stop().Done()
	return nil
}

func (m *Monitor) unforwarded(alerts []domain.Alert) []domain.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var fresh []domain.Alert
	for _, a := range alerts {
		if _, ok := m.forwarded[a.ID]; !ok {
			fresh = append(fresh, a)
		}
	}
	return fresh
}

func (m *Monitor) markForwarded(alerts []domain.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range alerts {
		if _, ok := m.forwarded[a.ID]; ok {
			continue
		}
		m.forwarded[a.ID] = struct{}{}
		m.forwardedOrder = append(m.forwardedOrder, a.ID)
	}
	if over := len(m.forwardedOrder) - maxForwardedAlerts; over > 0 {
		for _, id := range m.forwardedOrder[:over] {
			delete(m.forwarded, id)
		}
		m.forwardedOrder = append([]string(nil), m.forwardedOrder[over:]...)
	}
}

func (m *Monitor) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := m.Poll(ctx); err != nil && ctx.Err() == nil {
		m.logger.Error("monitor cycle failed", "error", err)
	}
}

// cronLogger routes scheduler messages to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
