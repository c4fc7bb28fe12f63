package domain

import (
	"fmt"
	"math"
	"strings"
)

// Analytics method tags.
const (
	MethodWeightedScore = "weighted-score"
	MethodCoordinate    = "coordinate-banding"
	MethodGeometric     = "geometric-propagation"
)

// Strength classes.
const (
	ClassHigh   = "High"
	ClassMedium = "Medium"
	ClassLow    = "Low"
)

// Direction labels.
const (
	DirectionUnknown = "Unknown"
	DirectionNorth   = "North"
	DirectionSouth   = "South"
	DirectionEast    = "East"
	DirectionWest    = "West"
	DirectionCentral = "Central"
)

// Sector risk levels.
const (
	RiskHigh   = "High"
	RiskMedium = "Medium"
	RiskLow    = "Low"
)

const (
	sunEarthDistanceKm = 150_000_000.0
	solarRadiusKm      = 696_340.0

	// etaLikelihoodFloor suppresses the ETA at or below this likelihood.
	etaLikelihoodFloor = 0.3
	maxKp              = 9
)

// scoreBand awards points when a value is strictly greater than min.
type scoreBand struct {
	min    float64
	points int
	reason string
}

// scoreBands are evaluated top-down; the first match wins.
type scoreBands []scoreBand

var (
	speedBands = scoreBands{
		{1000, 40, "Very fast CME (>1000 km/s)"},
		{800, 30, "Fast CME (>800 km/s)"},
		{500, 20, "Moderate speed CME (>500 km/s)"},
		{300, 10, "Slow CME (>300 km/s)"},
	}
	halfAngleBands = scoreBands{
		{60, 30, "Very wide CME (>60°)"},
		{45, 25, "Wide CME (>45°)"},
		{30, 20, "Moderate width CME (>30°)"},
		{15, 15, "Narrow CME (>15°)"},
	}
	fluxBands = scoreBands{
		{1000, 30, "Extreme particle flux (>1000)"},
		{500, 25, "High particle flux (>500)"},
		{100, 20, "Elevated particle flux (>100)"},
		{10, 15, "Minor particle flux (>10)"},
	}
)

func (bands scoreBands) match(v float64) (scoreBand, bool) {
	for _, b := range bands {
		if v > b.min {
			return b, true
		}
	}
	return scoreBand{}, false
}

// Strength is the weighted classification of a CME out of 100.
type Strength struct {
	Class     string `json:"class"`
	Score     int    `json:"score"`
	Rationale string `json:"rationale"`
	Method    string `json:"method"`
}

// ClassifyStrength scores speed (40), half-angle (30) and particle flux (30).
func ClassifyStrength(e CMEEvent) Strength {
	inputs := []struct {
		bands scoreBands
		value float64
	}{
		{speedBands, e.SpeedForClassification()},
		{halfAngleBands, e.HalfAngleOrDefault()},
		{fluxBands, e.ParticleFluxOrDefault()},
	}

	var score int
	var reasons []string
	for _, in := range inputs {
		b, ok := in.bands.match(in.value)
		if !ok {
			continue
		}
		score += b.points
		reasons = append(reasons, b.reason)
	}

	class := ClassLow
	switch {
	case score >= 70:
		class = ClassHigh
	case score >= 40:
		class = ClassMedium
	}
	return Strength{
		Class:     class,
		Score:     score,
		Rationale: strings.Join(reasons, "; "),
		Method:    MethodWeightedScore,
	}
}

// Direction is the estimated propagation direction of a CME.
type Direction struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Label      string  `json:"directionLabel"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// EstimateDirection labels the CME by its heliographic coordinates. A CME at
// exactly 0°/0° is treated as having no coordinates.
func EstimateDirection(e CMEEvent) Direction {
	lat, lon := e.LatitudeOrDefault(), e.LongitudeOrDefault()

	label := DirectionUnknown
	confidence := 0.5
	if lat != 0 || lon != 0 {
		confidence = 0.8
		switch {
		case lat > 30:
			label = DirectionNorth
		case lat < -30:
			label = DirectionSouth
		case lon > 30:
			label = DirectionEast
		case lon < -30:
			label = DirectionWest
		default:
			label = DirectionCentral
		}
	}
	if e.SpeedForClassification() > 0 {
		confidence += 0.1
	}
	// Only a measured half-angle adds confidence; the 30° default does not.
	if e.HalfAngle != nil && *e.HalfAngle > 0 {
		confidence += 0.1
	}

	return Direction{
		Latitude:   lat,
		Longitude:  lon,
		Label:      label,
		Confidence: round2(math.Min(confidence, 1)),
		Method:     MethodCoordinate,
	}
}

// StormIntensity is the expected geomagnetic response.
type StormIntensity struct {
	Intensity   string `json:"intensity"` // NOAA G-scale, G0-G4
	KpIndex     int    `json:"kpIndex"`
	Description string `json:"description"`
}

// CalculateGeomagneticStormIntensity estimates Kp from speed and width and maps
// it onto the NOAA G-scale.
func CalculateGeomagneticStormIntensity(e CMEEvent) StormIntensity {
	speed := e.SpeedForClassification()
	kp := 2
	switch {
	case speed > 1000:
		kp += 3
	case speed > 800:
		kp += 2
	case speed > 500:
		kp++
	}
	if e.HalfAngleOrDefault() > 45 {
		kp++
	}
	kp = min(kp, maxKp)

	return StormIntensity{
		Intensity:   gScale(kp),
		KpIndex:     kp,
		Description: fmt.Sprintf("%s geomagnetic activity expected (Kp %d)", kpSeverityWord(kp), kp),
	}
}

func gScale(kp int) string {
	switch {
	case kp >= 8:
		return "G4"
	case kp >= 6:
		return "G3"
	case kp >= 5:
		return "G2"
	case kp >= 4:
		return "G1"
	default:
		return "G0"
	}
}

func kpSeverityWord(kp int) string {
	switch {
	case kp == 0:
		return "Quiet"
	case kp <= 3:
		return "Minor"
	case kp <= 5:
		return "Moderate"
	case kp <= 7:
		return "Strong"
	default:
		return "Severe"
	}
}

// Forecast is the Earth-impact outlook for a CME.
type Forecast struct {
	EtaHours   *float64 `json:"etaHours"`
	Likelihood float64  `json:"likelihood"`
	Summary    string   `json:"summary"`
	Method     string   `json:"method"`
	Confidence float64  `json:"confidence"`
	DistanceKm float64  `json:"distanceKm"`
	SpeedKmSec float64  `json:"speedKmSec"`
}

// ForecastImpact estimates arrival time and impact likelihood. The ETA is
// omitted unless the likelihood exceeds 0.3.
func ForecastImpact(e CMEEvent) Forecast {
	speed := e.SpeedForForecast()
	distance := sunEarthDistanceKm - solarRadiusKm
	eta := round2(distance / (speed * 1000) / 3600)

	lat := math.Abs(e.LatitudeOrDefault())
	halfAngle := e.HalfAngleOrDefault()

	likelihood := 0.5
	switch {
	case lat < 15:
		likelihood += 0.3
	case lat < 30:
		likelihood += 0.1
	default:
		likelihood -= 0.2
	}
	switch {
	case halfAngle > 45:
		likelihood += 0.2
	case halfAngle > 30:
		likelihood += 0.1
	default:
		likelihood -= 0.1
	}
	switch {
	case speed > 800:
		likelihood += 0.1
	case speed < 400:
		likelihood -= 0.1
	}
	likelihood = round2(math.Max(0, math.Min(1, likelihood)))

	f := Forecast{
		Likelihood: likelihood,
		Summary:    impactSummary(likelihood),
		Method:     MethodGeometric,
		Confidence: 0.6,
		DistanceKm: distance,
		SpeedKmSec: speed,
	}
	if e.MostAccurate() {
		f.Confidence = 0.8
	}
	if likelihood > etaLikelihoodFloor {
		f.EtaHours = &eta
	}
	return f
}

func impactSummary(likelihood float64) string {
	switch {
	case likelihood > 0.7:
		return "High probability of Earth impact"
	case likelihood > 0.4:
		return "Moderate probability of Earth impact"
	default:
		return "Low probability of Earth impact"
	}
}

// SectorImpacts are qualitative per-sector risk levels.
type SectorImpacts struct {
	Aviation   string `json:"aviation"`
	Power      string `json:"power"`
	Satellites string `json:"satellites"`
	Telecom    string `json:"telecom"`
}

// PredictSectorImpacts derives sector risks from speed and storm intensity.
func PredictSectorImpacts(e CMEEvent) SectorImpacts {
	speed := e.SpeedForClassification()
	g := CalculateGeomagneticStormIntensity(e).Intensity
	severe := g == "G3" || g == "G4"

	s := SectorImpacts{
		Aviation:   RiskLow,
		Power:      RiskLow,
		Satellites: RiskMedium,
		Telecom:    RiskMedium,
	}
	switch {
	case speed > 800:
		s.Aviation = RiskHigh
	case speed > 500:
		s.Aviation = RiskMedium
	}
	switch {
	case severe:
		s.Power = RiskHigh
	case g == "G2":
		s.Power = RiskMedium
	}
	if speed > 600 {
		s.Satellites = RiskHigh
	}
	if severe {
		s.Telecom = RiskHigh
	}
	return s
}
