package domain

import "time"

// MagneticField groups the interplanetary magnetic field components in nT.
type MagneticField struct {
	Bx *float64 `json:"bx"`
	By *float64 `json:"by"`
	Bz *float64 `json:"bz"`
	Bt *float64 `json:"bt"`
}

// Reading is the display snapshot of the most recent measurement.
type Reading struct {
	Timestamp     time.Time     `json:"timestamp"`
	Density       *float64      `json:"density"`
	Speed         *float64      `json:"speed"`
	Temperature   *float64      `json:"temperature"`
	MagneticField MagneticField `json:"magneticField"`
}

// Average holds windowed means over Count records.
type Average struct {
	Density     float64 `json:"density"`
	Speed       float64 `json:"speed"`
	Temperature float64 `json:"temperature"`
	Bt          float64 `json:"bt"`
	Count       int     `json:"count"`
}

// LatestReading returns the newest record reshaped for display, or nil for an
// empty input. Input order does not matter; on equal timestamps the later
// record wins.
func LatestReading(records []MeasurementRecord) *Reading {
	if len(records) == 0 {
		return nil
	}
	latest := records[0]
	for _, r := range records[1:] {
		if !r.Timestamp.Before(latest.Timestamp) {
			latest = r
		}
	}
	return &Reading{
		Timestamp:   latest.Timestamp,
		Density:     latest.Density,
		Speed:       latest.Speed,
		Temperature: latest.Temperature,
		MagneticField: MagneticField{
			Bx: latest.Bx,
			By: latest.By,
			Bz: latest.Bz,
			Bt: latest.Bt,
		},
	}
}

// WindowedAverage averages records newer than windowHours before now. A missing
// field contributes 0 to its sum while the record still counts toward Count,
// which pulls averages toward zero on sparse data. Returns nil when no record
// falls inside the window.
func WindowedAverage(records []MeasurementRecord, windowHours float64) *Average {
	cutoff := clock.Now().Add(-time.Duration(windowHours * float64(time.Hour)))

	var avg Average
	for _, r := range records {
		if !r.Timestamp.After(cutoff) {
			continue
		}
		avg.Density += valueOr(r.Density, 0)
		avg.Speed += valueOr(r.Speed, 0)
		avg.Temperature += valueOr(r.Temperature, 0)
		avg.Bt += valueOr(r.Bt, 0)
		avg.Count++
	}
	if avg.Count == 0 {
		return nil
	}

	n := float64(avg.Count)
	avg.Density /= n
	avg.Speed /= n
	avg.Temperature /= n
	avg.Bt /= n
	return &avg
}
