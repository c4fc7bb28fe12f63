package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandsClassify(t *testing.T) {
	b := Bands{Low: 500, Medium: 600, High: 700, Extreme: 900}
	tests := []struct {
		v    float64
		want string
	}{
		{499, SeverityNone},
		{500, SeverityLow},
		{650, SeverityMedium},
		{700, SeverityHigh},
		{899.9, SeverityHigh},
		{900, SeverityExtreme},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Classify(tt.v), "v=%v", tt.v)
	}
}

func TestDefaultAnomalyThresholds(t *testing.T) {
	t.Run("copy is isolated", func(t *testing.T) {
		th := DefaultAnomalyThresholds()
		th[MetricWindSpeed] = Bands{}
		delete(th, MetricDensity)

		b, ok := ThresholdBands(MetricWindSpeed)
		require.True(t, ok)
		assert.Equal(t, 700.0, b.High)
		_, ok = ThresholdBands(MetricDensity)
		assert.True(t, ok)
	})

	t.Run("all metrics", func(t *testing.T) {
		th := DefaultAnomalyThresholds()
		for _, m := range []string{MetricWindSpeed, MetricParticleFlux, MetricBt, MetricDensity} {
			b, ok := th[m]
			require.True(t, ok, m)
			assert.Less(t, b.Low, b.Medium, m)
			assert.Less(t, b.Medium, b.High, m)
			assert.Less(t, b.High, b.Extreme, m)
		}
	})
}

func TestSeverityForValue(t *testing.T) {
	assert.Equal(t, SeverityExtreme, SeverityForValue(MetricParticleFlux, 1500))
	assert.Equal(t, SeverityMedium, SeverityForValue(MetricBt, 25))
	assert.Equal(t, SeverityNone, SeverityForValue("kp", 9))
}
