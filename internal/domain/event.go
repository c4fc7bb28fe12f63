package domain

import (
	"context"
	"time"
)

// MeasurementRecord is one timestamped solar wind reading parsed from the feed.
// Nil fields were absent or unparsable in the source line.
type MeasurementRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Density     *float64  `json:"density"`     // protons/cm³
	Speed       *float64  `json:"speed"`       // km/s
	Temperature *float64  `json:"temperature"` // K
	Bx          *float64  `json:"bx"`          // nT
	By          *float64  `json:"by"`
	Bz          *float64  `json:"bz"`
	Bt          *float64  `json:"bt"`
	Source      string    `json:"source,omitempty"`
}

// HasPrimaryMeasurement reports whether speed, density or bt is present.
func (r MeasurementRecord) HasPrimaryMeasurement() bool {
	return r.Speed != nil || r.Density != nil || r.Bt != nil
}

// RawFeed is the unparsed feed text together with where it came from.
type RawFeed struct {
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// RawEvent represents an unprocessed message from the CME submissions topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for a sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Default values used when a CME parameter is absent.
const (
	DefaultForecastSpeed = 400.0 // km/s
	DefaultHalfAngle     = 30.0  // degrees
)

// CMEEvent is a detected or submitted coronal mass ejection. Every parameter is
// optional so "absent" stays distinguishable from "zero"; the accessor methods
// resolve the documented defaults.
type CMEEvent struct {
	ID             string    `json:"id,omitempty"`
	StartTime      time.Time `json:"startTime,omitzero"`
	Latitude       *float64  `json:"latitude,omitempty"`  // heliographic degrees
	Longitude      *float64  `json:"longitude,omitempty"` // heliographic degrees
	Speed          *float64  `json:"speed,omitempty"`     // km/s
	HalfAngle      *float64  `json:"halfAngle,omitempty"` // degrees
	ParticleFlux   *float64  `json:"particleFlux,omitempty"`
	IsMostAccurate *bool     `json:"isMostAccurate,omitempty"`
}

// HasCoordinates reports whether either coordinate was supplied, even if zero.
func (e CMEEvent) HasCoordinates() bool {
	return e.Latitude != nil || e.Longitude != nil
}

// LatitudeOrDefault returns the latitude, or 0 when absent.
func (e CMEEvent) LatitudeOrDefault() float64 { return valueOr(e.Latitude, 0) }

// LongitudeOrDefault returns the longitude, or 0 when absent.
func (e CMEEvent) LongitudeOrDefault() float64 { return valueOr(e.Longitude, 0) }

// SpeedForClassification returns the speed, or 0 when absent.
func (e CMEEvent) SpeedForClassification() float64 { return valueOr(e.Speed, 0) }

// SpeedForForecast returns the speed, or 400 km/s when absent or non-positive.
// A non-positive speed cannot propagate, so it falls back like a missing one.
func (e CMEEvent) SpeedForForecast() float64 {
	if e.Speed == nil || *e.Speed <= 0 {
		return DefaultForecastSpeed
	}
	return *e.Speed
}

// HalfAngleOrDefault returns the half-angle, or 30° when absent.
func (e CMEEvent) HalfAngleOrDefault() float64 { return valueOr(e.HalfAngle, DefaultHalfAngle) }

// ParticleFluxOrDefault returns the particle flux, or 0 when absent.
func (e CMEEvent) ParticleFluxOrDefault() float64 { return valueOr(e.ParticleFlux, 0) }

// MostAccurate reports the provenance-quality flag, false when absent.
func (e CMEEvent) MostAccurate() bool {
	return e.IsMostAccurate != nil && *e.IsMostAccurate
}

// Float64 returns a pointer to v, for building optional fields.
func Float64(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
