// Package simulate generates reproducible synthetic solar wind data: feed text
// in the real-time solar wind layout, ASPEX-like telemetry series and CME
// parameters. Output depends only on the seed and the arguments.
package simulate

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
)

// SourceTag is the provenance tag for generated data.
const SourceTag = "synthetic"

const (
	missingProb   = 0.04
	spikeProb     = 0.03
	dropBtProb    = 0.10
	baseSpeed     = 420.0
	speedSigma    = 40.0
	baseDensity   = 5.0
	densitySigma  = 1.5
	baseTemp      = 90000.0
	tempSigma     = 20000.0
	fieldSigma    = 4.0
	baseFlux      = 60.0
	fluxSigma     = 20.0
	telemetryMiss = 0.03
)

// Generator is a seeded source of synthetic data. It is not safe for
// concurrent use.
type Generator struct {
	rng *rand.Rand
}

// New returns a generator whose output is fully determined by seed.
func New(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// FeedText renders n one-per-step readings starting at start as feed text:
// comment headers followed by data lines in shuffled order. Some fields are
// "-", some lines omit the Bt column and a few carry high-speed spikes.
func (g *Generator) FeedText(start time.Time, n int, step time.Duration) string {
	var b strings.Builder
	b.WriteString(":Data_list: synthetic_rtsw_wind_1m.txt\n")
	fmt.Fprintf(&b, ":Created: %s UT\n", start.UTC().Add(time.Duration(n)*step).Format("2006 Jan 02 1504"))
	b.WriteString("# Source: " + SourceTag + "\n")
	b.WriteString("# Units: Density p/cc  Speed km/s  Temperature K  B nT\n")
	b.WriteString("#  Date       Time      Density   Speed     Temp      Bx      By      Bz      Bt\n")
	b.WriteString("#-------------------------------------------------------------------------------\n")

	lines := make([]string, n)
	for i := range n {
		lines[i] = g.feedLine(start.UTC().Add(time.Duration(i) * step))
	}
	g.rng.Shuffle(len(lines), func(i, j int) { lines[i], lines[j] = lines[j], lines[i] })
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

func (g *Generator) feedLine(ts time.Time) string {
	speed := g.normal(baseSpeed, speedSigma, 250)
	if g.rng.Float64() < spikeProb {
		speed = 720 + g.rng.Float64()*230
	}
	bx := g.rng.NormFloat64() * fieldSigma
	by := g.rng.NormFloat64() * fieldSigma
	bz := g.rng.NormFloat64() * fieldSigma
	bt := math.Sqrt(bx*bx + by*by + bz*bz)

	fields := []string{
		ts.Format("2006-01-02"),
		ts.Format("15:04:05"),
		g.field(g.normal(baseDensity, densitySigma, 0.1), 2),
		g.field(speed, 1),
		g.field(g.normal(baseTemp, tempSigma, 5000), 0),
		g.field(bx, 2),
		g.field(by, 2),
		g.field(bz, 2),
	}
	if g.rng.Float64() >= dropBtProb {
		fields = append(fields, g.field(bt, 2))
	}
	return strings.Join(fields, "  ")
}

// field formats v or, occasionally, the missing marker.
func (g *Generator) field(v float64, prec int) string {
	if g.rng.Float64() < missingProb {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, v)
}

// Telemetry returns n wind speed and particle flux samples spaced by step.
// Values are occasionally absent and occasionally spike past the alert rules.
func (g *Generator) Telemetry(start time.Time, n int, step time.Duration) []domain.SeriesPoint {
	series := make([]domain.SeriesPoint, n)
	for i := range n {
		p := domain.SeriesPoint{Timestamp: start.UTC().Add(time.Duration(i) * step)}
		if g.rng.Float64() >= telemetryMiss {
			wind := g.normal(baseSpeed, speedSigma, 250)
			if g.rng.Float64() < spikeProb {
				wind = 700 + g.rng.Float64()*250
			}
			p.WindSpeed = &wind
		}
		if g.rng.Float64() >= telemetryMiss {
			flux := g.normal(baseFlux, fluxSigma, 0)
			if g.rng.Float64() < spikeProb {
				flux = 500 + g.rng.Float64()*700
			}
			p.ParticleFlux = &flux
		}
		series[i] = p
	}
	return series
}

// CMEEvent returns a CME with bounded random parameters. Particle flux is
// absent about half the time.
func (g *Generator) CMEEvent() domain.CMEEvent {
	e := domain.CMEEvent{
		Latitude:       domain.Float64(g.uniform(-60, 60)),
		Longitude:      domain.Float64(g.uniform(-90, 90)),
		Speed:          domain.Float64(g.uniform(250, 2000)),
		HalfAngle:      domain.Float64(g.uniform(10, 80)),
		IsMostAccurate: domain.Bool(g.rng.IntN(2) == 1),
	}
	if g.rng.IntN(2) == 1 {
		e.ParticleFlux = domain.Float64(g.uniform(0, 1500))
	}
	return e
}

func (g *Generator) normal(mean, sigma, floor float64) float64 {
	return math.Max(floor, mean+g.rng.NormFloat64()*sigma)
}

// uniform returns a value in [lo, hi) rounded to one decimal.
func (g *Generator) uniform(lo, hi float64) float64 {
	return math.Round((lo+g.rng.Float64()*(hi-lo))*10) / 10
}
