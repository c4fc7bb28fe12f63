// Command validate runs integrity checks over a solar wind feed file: parser
// invariants, aggregate sanity, anomaly report consistency and alert shaping.
// It is meant for fixtures produced by genmock and for captured live feeds.
//
// Usage:
//
//	go run ./cmd/validate -feed data/mock/rtsw_wind_1m_seed42.txt -window 24
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	feedPath := flag.String("feed", "", "path to a feed text file")
	window := flag.Float64("window", 24, "averaging window in hours")
	now := flag.String("now", "", "reference time for the window, RFC3339 (default: newest record)")
	flag.Parse()

	if *feedPath == "" || *window <= 0 {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*feedPath, *window, *now); code != 0 {
		os.Exit(code)
	}
}

func run(feedPath string, window float64, now string) int {
	fmt.Println("=== Solar Wind Feed Validation ===")
	fmt.Println()

	data, err := os.ReadFile(feedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read feed: %v\n", err)
		return 1
	}
	text := string(data)
	report := domain.ParseFeedReport(text, feedPath)

	ref, err := referenceTime(now, report.Records)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	domain.SetClock(clockwork.NewFakeClockAt(ref))
	defer domain.SetClock(nil)

	anomalies := domain.DetectAnomalies(domain.SeriesFromRecords(report.Records))

	phases := []*phase{
		validateParse(text, feedPath, report),
		validateAggregates(report.Records, window),
		validateAnomalies(report.Records, anomalies),
		validateAlerts(anomalies, feedPath),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d retained, %d skipped, %d anomalies (%s)\n",
		len(report.Records), len(report.Skipped), len(anomalies.Anomalies), anomalies.Method)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func referenceTime(now string, records []domain.MeasurementRecord) (time.Time, error) {
	if now != "" {
		t, err := time.Parse(time.RFC3339, now)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse -now: %w", err)
		}
		return t, nil
	}
	if len(records) == 0 {
		return time.Now().UTC(), nil
	}
	return records[len(records)-1].Timestamp, nil
}

// ── Phase 1: parser invariants ──

func validateParse(text, source string, report domain.FeedReport) *phase {
	p := &phase{name: "Phase 1: Parser invariants"}

	if !slices.IsSortedFunc(report.Records, func(a, b domain.MeasurementRecord) int {
		return a.Timestamp.Compare(b.Timestamp)
	}) {
		p.errorf("records are not sorted by timestamp")
	}

	for i, r := range report.Records {
		if !r.HasPrimaryMeasurement() {
			p.errorf("record %d (%s): retained without speed, density or bt", i, r.Timestamp.Format(time.RFC3339))
		}
		if r.Timestamp.Location() != time.UTC {
			p.errorf("record %d: timestamp not in UTC", i)
		}
		if r.Source != source {
			p.errorf("record %d: source %q, want %q", i, r.Source, source)
		}
		for name, v := range map[string]*float64{
			"density": r.Density, "speed": r.Speed, "temperature": r.Temperature,
			"bx": r.Bx, "by": r.By, "bz": r.Bz, "bt": r.Bt,
		} {
			if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
				p.errorf("record %d: %s is not finite", i, name)
			}
		}
		if r.Bt == nil && r.Bx != nil && r.By != nil && r.Bz != nil {
			p.errorf("record %d: bt not back-filled from components", i)
		}
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var dataLines []string
	for _, l := range lines[min(report.DataStart, len(lines)):] {
		if strings.TrimSpace(l) != "" {
			dataLines = append(dataLines, l)
		}
	}
	if got := len(report.Records) + len(report.Skipped); got != len(dataLines) {
		p.errorf("retained + skipped = %d, want %d non-blank data lines", got, len(dataLines))
	}

	// Line order must not matter.
	header := strings.Join(lines[:min(report.DataStart, len(lines))], "\n")
	reversed := slices.Clone(dataLines)
	slices.Reverse(reversed)
	shuffled := domain.ParseFeed(header+"\n"+strings.Join(reversed, "\n"), source)
	if diff := cmp.Diff(report.Records, shuffled); diff != "" {
		p.errorf("parse depends on line order (-original +reversed):\n%s", diff)
	}

	return p
}

// ── Phase 2: aggregates ──

func validateAggregates(records []domain.MeasurementRecord, window float64) *phase {
	p := &phase{name: "Phase 2: Aggregate sanity"}

	latest := domain.LatestReading(records)
	if len(records) == 0 {
		if latest != nil {
			p.errorf("latest reading for an empty feed")
		}
		return p
	}
	if latest == nil {
		p.errorf("no latest reading for %d records", len(records))
		return p
	}
	if want := records[len(records)-1].Timestamp; !latest.Timestamp.Equal(want) {
		p.errorf("latest reading at %s, want %s", latest.Timestamp.Format(time.RFC3339), want.Format(time.RFC3339))
	}

	avg := domain.WindowedAverage(records, window)
	if avg == nil {
		return p
	}
	if avg.Count > len(records) {
		p.errorf("average over %d records, only %d exist", avg.Count, len(records))
	}
	var maxSpeed float64
	for _, r := range records {
		if r.Speed != nil {
			maxSpeed = math.Max(maxSpeed, *r.Speed)
		}
	}
	if avg.Speed < 0 || avg.Speed > maxSpeed+0.005 {
		p.errorf("average speed %.2f outside [0, %.2f]", avg.Speed, maxSpeed)
	}
	return p
}

// ── Phase 3: anomaly report ──

func validateAnomalies(records []domain.MeasurementRecord, report domain.AnomalyReport) *phase {
	p := &phase{name: "Phase 3: Anomaly report consistency"}

	switch {
	case len(records) == 0:
		if report.Method != domain.MethodNoData {
			p.errorf("method %q for empty input, want %q", report.Method, domain.MethodNoData)
		}
		return p
	case report.Method == domain.MethodNoValidData:
		return p
	case report.Method != domain.MethodCombined:
		p.errorf("unexpected method %q", report.Method)
		return p
	}

	if report.Thresholds == nil {
		p.errorf("combined report without thresholds")
		return p
	}
	if report.Thresholds.WindSpeed < domain.RuleWindSpeedThreshold {
		p.errorf("effective wind threshold %.2f below rule threshold", report.Thresholds.WindSpeed)
	}

	for i, a := range report.Anomalies {
		if a.Reason == "" {
			p.errorf("anomaly %d: empty reason", i)
		}
		if a.Score < 0 || a.Score > 5 {
			p.errorf("anomaly %d: score %.2f outside [0, 5]", i, a.Score)
		}
		ruleWind := a.MetricValues.WindSpeed != nil && *a.MetricValues.WindSpeed > domain.RuleWindSpeedThreshold
		ruleFlux := a.MetricValues.ParticleFlux != nil && *a.MetricValues.ParticleFlux > domain.RuleParticleFluxThreshold
		if a.IsRuleBased != (ruleWind || ruleFlux) {
			p.errorf("anomaly %d: isRuleBased=%t inconsistent with values", i, a.IsRuleBased)
		}
		if a.IsRuleBased && a.Score != 5 {
			p.errorf("anomaly %d: rule-based score %.2f, want 5", i, a.Score)
		}
	}
	return p
}

// ── Phase 4: alert shaping ──

func validateAlerts(report domain.AnomalyReport, source string) *phase {
	p := &phase{name: "Phase 4: Alert shaping"}

	seen := map[string]bool{}
	for i, a := range report.Anomalies {
		alert := domain.AlertFromAnomaly(a, nil, source)
		if a.IsRuleBased && !alert.IsHighSeverity() {
			p.errorf("anomaly %d: rule-based but alert severity %q", i, alert.Severity)
		}
		if alert.EtaHours != nil {
			p.errorf("anomaly %d: ETA without an insight", i)
		}
		if seen[alert.ID] {
			p.errorf("anomaly %d: duplicate alert id %s", i, alert.ID)
		}
		seen[alert.ID] = true
	}
	return p
}
