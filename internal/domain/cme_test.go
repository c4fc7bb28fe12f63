package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStrength(t *testing.T) {
	tests := []struct {
		name      string
		event     CMEEvent
		class     string
		score     int
		rationale string
	}{
		{
			name:      "maximum",
			event:     CMEEvent{Speed: Float64(1200), HalfAngle: Float64(70), ParticleFlux: Float64(1200)},
			class:     ClassHigh,
			score:     100,
			rationale: "Very fast CME (>1000 km/s); Very wide CME (>60°); Extreme particle flux (>1000)",
		},
		{
			name:      "defaults only",
			event:     CMEEvent{},
			class:     ClassLow,
			score:     15,
			rationale: "Narrow CME (>15°)",
		},
		{
			name:      "boundaries are exclusive",
			event:     CMEEvent{Speed: Float64(1000), HalfAngle: Float64(60), ParticleFlux: Float64(1000)},
			class:     ClassHigh,
			score:     30 + 25 + 25,
			rationale: "Fast CME (>800 km/s); Wide CME (>45°); High particle flux (>500)",
		},
		{
			name:      "medium with minor flux",
			event:     CMEEvent{Speed: Float64(350), HalfAngle: Float64(20), ParticleFlux: Float64(11)},
			class:     ClassMedium,
			score:     10 + 15 + 15,
			rationale: "Slow CME (>300 km/s); Narrow CME (>15°); Minor particle flux (>10)",
		},
		{
			name:      "medium",
			event:     CMEEvent{Speed: Float64(600), HalfAngle: Float64(35)},
			class:     ClassMedium,
			score:     40,
			rationale: "Moderate speed CME (>500 km/s); Moderate width CME (>30°)",
		},
		{
			name:      "low with partial bands",
			event:     CMEEvent{Speed: Float64(350), HalfAngle: Float64(20)},
			class:     ClassLow,
			score:     10 + 15,
			rationale: "Slow CME (>300 km/s); Narrow CME (>15°)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyStrength(tt.event)
			assert.Equal(t, tt.class, got.Class)
			assert.Equal(t, tt.score, got.Score)
			assert.Equal(t, tt.rationale, got.Rationale)
			assert.Equal(t, MethodWeightedScore, got.Method)
		})
	}
}

func TestEstimateDirection(t *testing.T) {
	tests := []struct {
		name       string
		event      CMEEvent
		label      string
		confidence float64
	}{
		{"no data", CMEEvent{}, DirectionUnknown, 0.5},
		{"explicit zero is unknown", CMEEvent{Latitude: Float64(0), Longitude: Float64(0)}, DirectionUnknown, 0.5},
		{"unknown with speed and angle", CMEEvent{Speed: Float64(500), HalfAngle: Float64(20)}, DirectionUnknown, 0.7},
		{"north", CMEEvent{Latitude: Float64(31)}, DirectionNorth, 0.8},
		{"south beats east", CMEEvent{Latitude: Float64(-40), Longitude: Float64(80)}, DirectionSouth, 0.8},
		{"east", CMEEvent{Latitude: Float64(10), Longitude: Float64(45)}, DirectionEast, 0.8},
		{"west", CMEEvent{Longitude: Float64(-31)}, DirectionWest, 0.8},
		{"central", CMEEvent{Latitude: Float64(30), Longitude: Float64(-30)}, DirectionCentral, 0.8},
		{"clamped", CMEEvent{Latitude: Float64(5), Speed: Float64(900), HalfAngle: Float64(40)}, DirectionCentral, 1.0},
		{"speed bonus only", CMEEvent{Latitude: Float64(5), Speed: Float64(900)}, DirectionCentral, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateDirection(tt.event)
			assert.Equal(t, tt.label, got.Label)
			assert.Equal(t, tt.confidence, got.Confidence)
			assert.Equal(t, MethodCoordinate, got.Method)
		})
	}
}

func TestCalculateGeomagneticStormIntensity(t *testing.T) {
	tests := []struct {
		name      string
		event     CMEEvent
		kp        int
		intensity string
		desc      string
	}{
		{"defaults", CMEEvent{}, 2, "G0", "Minor geomagnetic activity expected (Kp 2)"},
		{"fast and wide", CMEEvent{Speed: Float64(1100), HalfAngle: Float64(50)}, 6, "G3", "Strong geomagnetic activity expected (Kp 6)"},
		{"fast narrow", CMEEvent{Speed: Float64(1100)}, 5, "G2", "Moderate geomagnetic activity expected (Kp 5)"},
		{"moderate", CMEEvent{Speed: Float64(900)}, 4, "G1", "Moderate geomagnetic activity expected (Kp 4)"},
		{"slow wide", CMEEvent{Speed: Float64(600), HalfAngle: Float64(46)}, 4, "G1", "Moderate geomagnetic activity expected (Kp 4)"},
		{"boundary speed", CMEEvent{Speed: Float64(500), HalfAngle: Float64(45)}, 2, "G0", "Minor geomagnetic activity expected (Kp 2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateGeomagneticStormIntensity(tt.event)
			assert.Equal(t, tt.kp, got.KpIndex)
			assert.Equal(t, tt.intensity, got.Intensity)
			assert.Equal(t, tt.desc, got.Description)
		})
	}
}

func TestGScaleAndSeverityWord(t *testing.T) {
	scale := map[int]string{0: "G0", 3: "G0", 4: "G1", 5: "G2", 6: "G3", 7: "G3", 8: "G4", 9: "G4"}
	for kp, want := range scale {
		assert.Equal(t, want, gScale(kp), "kp=%d", kp)
	}

	words := map[int]string{0: "Quiet", 1: "Minor", 3: "Minor", 4: "Moderate", 5: "Moderate", 6: "Strong", 7: "Strong", 8: "Severe", 9: "Severe"}
	for kp, want := range words {
		assert.Equal(t, want, kpSeverityWord(kp), "kp=%d", kp)
	}
}

func TestForecastImpact(t *testing.T) {
	t.Run("head-on wide CME", func(t *testing.T) {
		got := ForecastImpact(CMEEvent{Speed: Float64(500), Latitude: Float64(0), Longitude: Float64(0), HalfAngle: Float64(50)})

		assert.Equal(t, 1.0, got.Likelihood)
		require.NotNil(t, got.EtaHours)
		assert.Equal(t, 0.08, *got.EtaHours)
		assert.Equal(t, "High probability of Earth impact", got.Summary)
		assert.Equal(t, 500.0, got.SpeedKmSec)
		assert.Equal(t, 149_303_660.0, got.DistanceKm)
		assert.Equal(t, MethodGeometric, got.Method)
	})

	t.Run("high latitude narrow CME suppresses ETA", func(t *testing.T) {
		got := ForecastImpact(CMEEvent{Speed: Float64(400), Latitude: Float64(80), HalfAngle: Float64(5)})

		assert.Equal(t, 0.2, got.Likelihood)
		assert.Nil(t, got.EtaHours)
		assert.Equal(t, "Low probability of Earth impact", got.Summary)
	})

	t.Run("default speed", func(t *testing.T) {
		got := ForecastImpact(CMEEvent{})

		// 0.5 + 0.3 (lat 0) - 0.1 (default 30° half-angle)
		assert.Equal(t, 0.7, got.Likelihood)
		assert.Equal(t, DefaultForecastSpeed, got.SpeedKmSec)
		require.NotNil(t, got.EtaHours)
		assert.Equal(t, 0.1, *got.EtaHours)
		assert.Equal(t, "Moderate probability of Earth impact", got.Summary)
	})

	t.Run("non-positive speed uses default", func(t *testing.T) {
		got := ForecastImpact(CMEEvent{Speed: Float64(0)})
		assert.Equal(t, DefaultForecastSpeed, got.SpeedKmSec)
	})

	t.Run("slow mid-latitude", func(t *testing.T) {
		got := ForecastImpact(CMEEvent{Speed: Float64(300), Latitude: Float64(-20), HalfAngle: Float64(40)})
		// 0.5 + 0.1 + 0.1 - 0.1
		assert.Equal(t, 0.6, got.Likelihood)
	})

	t.Run("fast boost", func(t *testing.T) {
		got := ForecastImpact(CMEEvent{Speed: Float64(900), Latitude: Float64(40), HalfAngle: Float64(40)})
		// 0.5 - 0.2 + 0.1 + 0.1
		assert.Equal(t, 0.5, got.Likelihood)
	})

	t.Run("clamped at one", func(t *testing.T) {
		got := ForecastImpact(CMEEvent{Speed: Float64(900), HalfAngle: Float64(50)})
		assert.Equal(t, 1.0, got.Likelihood)
	})

	t.Run("lowest bands", func(t *testing.T) {
		got := ForecastImpact(CMEEvent{Speed: Float64(100), Latitude: Float64(60), HalfAngle: Float64(10)})
		// 0.5 - 0.2 - 0.1 - 0.1
		assert.Equal(t, 0.1, got.Likelihood)
		assert.Nil(t, got.EtaHours)
	})

	t.Run("confidence follows provenance", func(t *testing.T) {
		assert.Equal(t, 0.8, ForecastImpact(CMEEvent{IsMostAccurate: Bool(true)}).Confidence)
		assert.Equal(t, 0.6, ForecastImpact(CMEEvent{IsMostAccurate: Bool(false)}).Confidence)
		assert.Equal(t, 0.6, ForecastImpact(CMEEvent{}).Confidence)
	})
}

func TestPredictSectorImpacts(t *testing.T) {
	tests := []struct {
		name  string
		event CMEEvent
		want  SectorImpacts
	}{
		{"quiet", CMEEvent{Speed: Float64(400)}, SectorImpacts{RiskLow, RiskLow, RiskMedium, RiskMedium}},
		{"moderate", CMEEvent{Speed: Float64(700)}, SectorImpacts{RiskMedium, RiskLow, RiskHigh, RiskMedium}},
		{"g2", CMEEvent{Speed: Float64(1100)}, SectorImpacts{RiskHigh, RiskMedium, RiskHigh, RiskMedium}},
		{"g3", CMEEvent{Speed: Float64(1100), HalfAngle: Float64(50)}, SectorImpacts{RiskHigh, RiskHigh, RiskHigh, RiskHigh}},
		{"no speed", CMEEvent{}, SectorImpacts{RiskLow, RiskLow, RiskMedium, RiskMedium}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PredictSectorImpacts(tt.event))
		})
	}
}
