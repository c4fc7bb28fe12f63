package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Insight aggregates every CME analytic for one event.
type Insight struct {
	ID          string         `json:"id"`
	Event       CMEEvent       `json:"event"`
	Strength    Strength       `json:"strength"`
	Direction   Direction      `json:"direction"`
	Storm       StormIntensity `json:"storm"`
	Forecast    Forecast       `json:"forecast"`
	Sectors     SectorImpacts  `json:"sectors"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// BuildInsight runs the analytics on e and stamps the result with the package
// clock. When e carries no ID, one is derived from its parameters.
func BuildInsight(e CMEEvent) Insight {
	id := e.ID
	if id == "" {
		id = generateID(e)
	}
	return Insight{
		ID:          id,
		Event:       e,
		Strength:    ClassifyStrength(e),
		Direction:   EstimateDirection(e),
		Storm:       CalculateGeomagneticStormIntensity(e),
		Forecast:    ForecastImpact(e),
		Sectors:     PredictSectorImpacts(e),
		GeneratedAt: clock.Now(),
	}
}

// SerializeInsight encodes an insight as a keyed message with routing headers.
func SerializeInsight(in Insight) (OutputEvent, error) {
	value, err := json.Marshal(in)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("marshal insight: %w", err)
	}
	return OutputEvent{
		Key:   []byte(in.ID),
		Value: value,
		Headers: map[string]string{
			"insight_class": in.Strength.Class,
			"storm_scale":   in.Storm.Intensity,
			"generated_at":  in.GeneratedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}

// generateID produces a deterministic ID from the event parameters, so
// reprocessing the same submission yields the same insight ID.
func generateID(e CMEEvent) string {
	input := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		e.StartTime.UTC().Format(time.RFC3339),
		formatOptional(e.Latitude), formatOptional(e.Longitude),
		formatOptional(e.Speed), formatOptional(e.HalfAngle),
		formatOptional(e.ParticleFlux), formatOptionalBool(e.IsMostAccurate))
	hash := sha256.Sum256([]byte(input))
	return "cme-" + hex.EncodeToString(hash[:8])
}

func formatOptional(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *p)
}

func formatOptionalBool(p *bool) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%t", *p)
}
