package domain

import (
	"math"
	"time"
)

// Rule-based limits applied to every record regardless of sample statistics.
const (
	RuleWindSpeedThreshold    = 700.0 // km/s
	RuleParticleFluxThreshold = 500.0

	// stdDevMultiplier sets the statistical cut at mean + 2σ.
	stdDevMultiplier = 2.0
	maxAnomalyScore  = 5.0
	ruleScore        = 5.0
)

// Detection methods reported in [AnomalyReport].
const (
	MethodNoData      = "no-data"
	MethodNoValidData = "no-valid-data"
	MethodCombined    = "statistical+rule-based"
)

// Anomaly types. Type reflects the statistical tests only.
const (
	AnomalyTypeBoth = "both"
	AnomalyTypeWind = "wind"
	AnomalyTypeFlux = "flux"
)

// Anomaly reasons, in priority order.
const (
	ReasonHighBoth    = "High Solar Wind Speed & High Particle Flux"
	ReasonHighWind    = "High Solar Wind Speed"
	ReasonHighFlux    = "High Particle Flux"
	ReasonUnusualBoth = "Unusual Solar Wind Speed & Particle Flux"
	ReasonUnusualWind = "Unusual Solar Wind Speed"
	ReasonUnusualFlux = "Unusual Particle Flux"
)

// SeriesPoint is one sample of the detector input.
type SeriesPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	WindSpeed    *float64  `json:"windSpeed"`
	ParticleFlux *float64  `json:"particleFlux"`
}

// SeriesFromRecords maps feed records to detector input. The plasma feed has no
// particle flux, so ParticleFlux stays nil.
func SeriesFromRecords(records []MeasurementRecord) []SeriesPoint {
	series := make([]SeriesPoint, len(records))
	for i, r := range records {
		series[i] = SeriesPoint{Timestamp: r.Timestamp, WindSpeed: r.Speed}
	}
	return series
}

// MetricValues are the values that were tested for one record.
type MetricValues struct {
	WindSpeed    *float64 `json:"windSpeed"`
	ParticleFlux *float64 `json:"particleFlux"`
}

// MetricStats summarizes one metric across the series.
type MetricStats struct {
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"stdDev"`
	Samples   int     `json:"samples"`
	Threshold float64 `json:"threshold"` // mean + 2σ
}

// EffectiveThresholds are the labeling thresholds per metric: the larger of the
// statistical cut and the rule constant.
type EffectiveThresholds struct {
	WindSpeed    float64     `json:"windSpeed"`
	ParticleFlux float64     `json:"particleFlux"`
	WindStats    MetricStats `json:"windStats"`
	FluxStats    MetricStats `json:"fluxStats"`
}

// AnomalyRecord describes one flagged series point.
type AnomalyRecord struct {
	Timestamp      time.Time           `json:"timestamp"`
	MetricValues   MetricValues        `json:"metricValues"`
	Score          float64             `json:"score"`
	Type           string              `json:"type"`
	Reason         string              `json:"reason"`
	IsRuleBased    bool                `json:"isRuleBased"`
	ThresholdsUsed EffectiveThresholds `json:"thresholdsUsed"`
}

// AnomalyReport is the detector output. Thresholds is nil for degenerate input.
type AnomalyReport struct {
	Method     string               `json:"method"`
	Anomalies  []AnomalyRecord      `json:"anomalies"`
	Thresholds *EffectiveThresholds `json:"thresholds,omitempty"`
}

// DetectAnomalies flags points that exceed mean + 2σ of their metric or the
// fixed rule thresholds. The two tests fire independently.
func DetectAnomalies(series []SeriesPoint) AnomalyReport {
	if len(series) == 0 {
		return AnomalyReport{Method: MethodNoData, Anomalies: []AnomalyRecord{}}
	}

	wind := computeStats(series, func(p SeriesPoint) *float64 { return p.WindSpeed })
	flux := computeStats(series, func(p SeriesPoint) *float64 { return p.ParticleFlux })
	if wind.Samples == 0 && flux.Samples == 0 {
		return AnomalyReport{Method: MethodNoValidData, Anomalies: []AnomalyRecord{}}
	}

	thresholds := EffectiveThresholds{
		WindSpeed:    math.Max(wind.Threshold, RuleWindSpeedThreshold),
		ParticleFlux: math.Max(flux.Threshold, RuleParticleFluxThreshold),
		WindStats:    wind,
		FluxStats:    flux,
	}

	anomalies := make([]AnomalyRecord, 0)
	for _, p := range series {
		statWind := statisticallyHigh(p.WindSpeed, wind)
		statFlux := statisticallyHigh(p.ParticleFlux, flux)
		ruleWind := p.WindSpeed != nil && *p.WindSpeed > RuleWindSpeedThreshold
		ruleFlux := p.ParticleFlux != nil && *p.ParticleFlux > RuleParticleFluxThreshold

		reason := anomalyReason(statWind, statFlux, ruleWind, ruleFlux)
		if reason == "" {
			continue
		}

		var score float64
		if statWind {
			score = math.Max(score, (*p.WindSpeed-wind.Mean)/wind.StdDev)
		}
		if statFlux {
			score = math.Max(score, (*p.ParticleFlux-flux.Mean)/flux.StdDev)
		}
		if ruleWind || ruleFlux {
			score = math.Max(score, ruleScore)
		}

		anomalies = append(anomalies, AnomalyRecord{
			Timestamp:      p.Timestamp,
			MetricValues:   MetricValues{WindSpeed: p.WindSpeed, ParticleFlux: p.ParticleFlux},
			Score:          math.Min(score, maxAnomalyScore),
			Type:           anomalyType(statWind, statFlux),
			Reason:         reason,
			IsRuleBased:    ruleWind || ruleFlux,
			ThresholdsUsed: thresholds,
		})
	}

	return AnomalyReport{Method: MethodCombined, Anomalies: anomalies, Thresholds: &thresholds}
}

// computeStats returns the population mean and standard deviation of the
// non-nil values selected by get.
func computeStats(series []SeriesPoint, get func(SeriesPoint) *float64) MetricStats {
	var sum float64
	var n int
	for _, p := range series {
		if v := get(p); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return MetricStats{}
	}

	mean := sum / float64(n)
	var sq float64
	for _, p := range series {
		if v := get(p); v != nil {
			d := *v - mean
			sq += d * d
		}
	}
	std := math.Sqrt(sq / float64(n))
	return MetricStats{
		Mean:      mean,
		StdDev:    std,
		Samples:   n,
		Threshold: mean + stdDevMultiplier*std,
	}
}

// statisticallyHigh is false whenever σ is zero, so a constant or empty series
// cannot produce a statistical anomaly.
func statisticallyHigh(v *float64, s MetricStats) bool {
	if v == nil || s.Samples == 0 || s.StdDev == 0 {
		return false
	}
	return *v > s.Threshold
}

func anomalyReason(statWind, statFlux, ruleWind, ruleFlux bool) string {
	switch {
	case ruleWind && ruleFlux:
		return ReasonHighBoth
	case ruleWind:
		return ReasonHighWind
	case ruleFlux:
		return ReasonHighFlux
	case statWind && statFlux:
		return ReasonUnusualBoth
	case statWind:
		return ReasonUnusualWind
	case statFlux:
		return ReasonUnusualFlux
	default:
		return ""
	}
}

// anomalyType falls through to "flux" when neither statistical test fired,
// including purely rule-based wind anomalies.
func anomalyType(statWind, statFlux bool) string {
	switch {
	case statWind && statFlux:
		return AnomalyTypeBoth
	case statWind:
		return AnomalyTypeWind
	default:
		return AnomalyTypeFlux
	}
}
