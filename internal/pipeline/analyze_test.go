package pipeline_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
	"github.com/couchcryptid/space-weather-etl/internal/observability"
	"github.com/couchcryptid/space-weather-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var feedStart = time.Date(2024, 5, 10, 17, 0, 0, 0, time.UTC)

// feedWithSpike renders 21 one-minute readings at 400 km/s, replacing the
// 11th with spike.
func feedWithSpike(spike float64) string {
	var b strings.Builder
	b.WriteString(":Data_list: rtsw_wind_1m.txt\n")
	b.WriteString("# Units: Density p/cc  Speed km/s  Temperature K  B nT\n")
	for i := range 21 {
		speed := 400.0
		if i == 10 {
			speed = spike
		}
		ts := feedStart.Add(time.Duration(i) * time.Minute)
		fmt.Fprintf(&b, "%s  4.20  %.1f  81234  -2.10  3.40  -6.80  7.90\n", ts.Format("2006-01-02 15:04:05"), speed)
	}
	b.WriteString("2024-05-10 17:30:00  -  -  9000  1.0  2.0\n")
	return b.String()
}

func freezeDomainClock(t *testing.T, at time.Time) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func TestFeedAnalyzer_RuleBasedSpikeRaisesAlert(t *testing.T) {
	freezeDomainClock(t, feedStart.Add(time.Hour))
	metrics := observability.NewMetricsForTesting()
	a := pipeline.NewFeedAnalyzer(24, metrics, discardLogger())

	out := a.Analyze(domain.RawFeed{Text: feedWithSpike(800), Source: "rtsw", FetchedAt: feedStart.Add(time.Hour)})

	assert.Equal(t, "rtsw", out.Source)
	assert.Equal(t, 21, out.Records)
	require.Len(t, out.Skipped, 1)
	assert.Equal(t, domain.SkipNoMeasurements, out.Skipped[0].Reason)

	require.NotNil(t, out.Latest)
	assert.Equal(t, feedStart.Add(20*time.Minute), out.Latest.Timestamp)
	require.NotNil(t, out.Average)
	assert.Equal(t, 21, out.Average.Count)

	assert.Equal(t, domain.MethodCombined, out.Anomalies.Method)
	require.Len(t, out.Anomalies.Anomalies, 1)
	assert.True(t, out.Anomalies.Anomalies[0].IsRuleBased)

	require.Len(t, out.Insights, 1)
	assert.Equal(t, feedStart.Add(10*time.Minute), out.Insights[0].Event.StartTime)

	require.Len(t, out.Alerts, 1)
	alert := out.Alerts[0]
	assert.Equal(t, domain.SeverityHigh, alert.Severity)
	assert.Equal(t, "rtsw", alert.Source)
	require.NotNil(t, alert.EtaHours)
	assert.Equal(t, out.Insights[0].Forecast.EtaHours, alert.EtaHours)

	assert.InDelta(t, 21, testutil.ToFloat64(metrics.RecordsParsed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.LinesSkipped.WithLabelValues(domain.SkipNoMeasurements)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.AnomaliesDetected), 0)
	assert.InDelta(t, 400, testutil.ToFloat64(metrics.LatestWindSpeed), 0)
	assert.InDelta(t, 7.9, testutil.ToFloat64(metrics.LatestBt), 1e-9)
}

func TestFeedAnalyzer_StatisticalOnlySpikeIsNotForwarded(t *testing.T) {
	freezeDomainClock(t, feedStart.Add(time.Hour))
	a := pipeline.NewFeedAnalyzer(24, observability.NewMetricsForTesting(), discardLogger())

	out := a.Analyze(domain.RawFeed{Text: feedWithSpike(560), Source: "rtsw"})

	require.Len(t, out.Anomalies.Anomalies, 1)
	assert.False(t, out.Anomalies.Anomalies[0].IsRuleBased)
	assert.Equal(t, domain.ReasonUnusualWind, out.Anomalies.Anomalies[0].Reason)
	assert.Len(t, out.Insights, 1)
	assert.Empty(t, out.Alerts)
}

func TestFeedAnalyzer_WindowExcludesStaleData(t *testing.T) {
	freezeDomainClock(t, feedStart.Add(48*time.Hour))
	a := pipeline.NewFeedAnalyzer(24, observability.NewMetricsForTesting(), discardLogger())

	out := a.Analyze(domain.RawFeed{Text: feedWithSpike(400), Source: "rtsw"})

	assert.NotNil(t, out.Latest)
	assert.Nil(t, out.Average)
	assert.Empty(t, out.Anomalies.Anomalies)
	assert.Empty(t, out.Alerts)
}

func TestFeedAnalyzer_EmptyFeed(t *testing.T) {
	a := pipeline.NewFeedAnalyzer(24, observability.NewMetricsForTesting(), discardLogger())

	out := a.Analyze(domain.RawFeed{Text: ":Data_list: empty\n", Source: "rtsw"})

	assert.Zero(t, out.Records)
	assert.Nil(t, out.Latest)
	assert.Nil(t, out.Average)
	assert.Equal(t, domain.MethodNoData, out.Anomalies.Method)
	assert.Empty(t, out.Alerts)
}
