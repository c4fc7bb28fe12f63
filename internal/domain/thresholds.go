package domain

import "maps"

// Metric names used in threshold tables.
const (
	MetricWindSpeed    = "windSpeed"
	MetricParticleFlux = "particleFlux"
	MetricBt           = "bt"
	MetricDensity      = "density"
)

// Severity levels, lowest first.
const (
	SeverityNone    = "none"
	SeverityLow     = "low"
	SeverityMedium  = "medium"
	SeverityHigh    = "high"
	SeverityExtreme = "extreme"
)

var severityRank = map[string]int{
	SeverityNone:    0,
	SeverityLow:     1,
	SeverityMedium:  2,
	SeverityHigh:    3,
	SeverityExtreme: 4,
}

// Bands are the lower bounds of each severity level for one metric.
type Bands struct {
	Low     float64 `json:"low"`
	Medium  float64 `json:"medium"`
	High    float64 `json:"high"`
	Extreme float64 `json:"extreme"`
}

// Classify returns the highest band v reaches, or "none" below Low.
func (b Bands) Classify(v float64) string {
	switch {
	case v >= b.Extreme:
		return SeverityExtreme
	case v >= b.High:
		return SeverityHigh
	case v >= b.Medium:
		return SeverityMedium
	case v >= b.Low:
		return SeverityLow
	default:
		return SeverityNone
	}
}

// AnomalyThresholds maps a metric name to its severity bands.
type AnomalyThresholds map[string]Bands

// defaultThresholds is read-only for the life of the process. It is only
// handed out as a copy.
var defaultThresholds = AnomalyThresholds{
	MetricWindSpeed:    {Low: 500, Medium: 600, High: 700, Extreme: 900},
	MetricParticleFlux: {Low: 100, Medium: 300, High: 500, Extreme: 1000},
	MetricBt:           {Low: 10, Medium: 20, High: 30, Extreme: 50},
	MetricDensity:      {Low: 10, Medium: 20, High: 40, Extreme: 60},
}

// DefaultAnomalyThresholds returns a copy of the process-wide threshold table.
func DefaultAnomalyThresholds() AnomalyThresholds {
	return maps.Clone(defaultThresholds)
}

// ThresholdBands returns the default bands for metric.
func ThresholdBands(metric string) (Bands, bool) {
	b, ok := defaultThresholds[metric]
	return b, ok
}

// SeverityForValue classifies v against the default bands for metric. Unknown
// metrics classify as "none".
func SeverityForValue(metric string, v float64) string {
	b, ok := ThresholdBands(metric)
	if !ok {
		return SeverityNone
	}
	return b.Classify(v)
}

// maxSeverity returns whichever of a and b ranks higher.
func maxSeverity(a, b string) string {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}
