package simulate

import (
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func TestGeneratorDeterministic(t *testing.T) {
	a, b := New(42), New(42)

	assert.Equal(t, a.FeedText(testStart, 100, time.Minute), b.FeedText(testStart, 100, time.Minute))
	assert.Equal(t, a.Telemetry(testStart, 100, time.Minute), b.Telemetry(testStart, 100, time.Minute))
	assert.Equal(t, a.CMEEvent(), b.CMEEvent())
}

func TestGeneratorSeedsDiffer(t *testing.T) {
	assert.NotEqual(t, New(1).FeedText(testStart, 50, time.Minute), New(2).FeedText(testStart, 50, time.Minute))
}

func TestFeedTextParses(t *testing.T) {
	text := New(7).FeedText(testStart, 200, time.Minute)
	report := domain.ParseFeedReport(text, SourceTag)

	assert.Equal(t, 6, report.DataStart)
	assert.True(t, strings.HasPrefix(text, ":Data_list:"))
	// Only lines with speed, density and bt all missing can be dropped.
	assert.GreaterOrEqual(t, len(report.Records), 190)
	for _, s := range report.Skipped {
		assert.Equal(t, domain.SkipNoMeasurements, s.Reason)
	}

	first, last := report.Records[0], report.Records[len(report.Records)-1]
	assert.False(t, first.Timestamp.Before(testStart))
	assert.True(t, last.Timestamp.Before(testStart.Add(200*time.Minute)))
	for _, r := range report.Records {
		assert.Equal(t, SourceTag, r.Source)
		if r.Speed != nil {
			assert.GreaterOrEqual(t, *r.Speed, 250.0)
		}
	}
}

func TestTelemetry(t *testing.T) {
	series := New(3).Telemetry(testStart, 500, time.Minute)

	require.Len(t, series, 500)
	assert.Equal(t, testStart, series[0].Timestamp)
	assert.Equal(t, testStart.Add(499*time.Minute), series[499].Timestamp)

	var wind, flux int
	for _, p := range series {
		if p.WindSpeed != nil {
			wind++
		}
		if p.ParticleFlux != nil {
			flux++
			assert.GreaterOrEqual(t, *p.ParticleFlux, 0.0)
		}
	}
	assert.Greater(t, wind, 450)
	assert.Greater(t, flux, 450)
}

func TestCMEEventBounds(t *testing.T) {
	g := New(11)
	for range 100 {
		e := g.CMEEvent()
		require.NotNil(t, e.Speed)
		assert.GreaterOrEqual(t, *e.Speed, 250.0)
		assert.LessOrEqual(t, *e.Speed, 2000.0)
		assert.GreaterOrEqual(t, *e.HalfAngle, 10.0)
		assert.LessOrEqual(t, *e.HalfAngle, 80.0)
		assert.LessOrEqual(t, *e.Latitude, 60.0)
		assert.GreaterOrEqual(t, *e.Latitude, -60.0)
		assert.NotNil(t, e.IsMostAccurate)
	}
}
