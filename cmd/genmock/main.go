// Command genmock generates seeded synthetic fixtures: solar wind feed text in
// the real-time layout, a wind/flux telemetry series and CME submissions. It
// runs the generated data through the domain package and prints the stats the
// test suites assert on.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -seed 42 -n 1440 \
//	  -feed-out data/mock/rtsw_wind_1m_seed42.txt \
//	  -telemetry-out data/mock/telemetry_seed42.json \
//	  -cme-out data/mock/cme_submissions_seed42.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/couchcryptid/space-weather-etl/internal/domain"
	"github.com/couchcryptid/space-weather-etl/internal/simulate"
	"github.com/jonboulle/clockwork"
)

var baseDate = time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	seed := flag.Uint64("seed", 42, "generator seed")
	n := flag.Int("n", 1440, "number of feed and telemetry samples")
	step := flag.Duration("step", time.Minute, "sample spacing")
	cmes := flag.Int("cmes", 10, "number of CME submissions")
	feedOut := flag.String("feed-out", "", "output path for the feed text fixture")
	telemetryOut := flag.String("telemetry-out", "", "output path for the telemetry JSON fixture (optional)")
	cmeOut := flag.String("cme-out", "", "output path for the CME submissions JSON fixture (optional)")
	flag.Parse()

	if *feedOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -feed-out")
	}
	if *n <= 0 || *step <= 0 {
		return fmt.Errorf("-n and -step must be positive")
	}

	end := baseDate.Add(time.Duration(*n) * *step)

	// Fix the clock at the end of the series so windowed averages and insight
	// timestamps are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(end))
	defer domain.SetClock(nil)

	gen := simulate.New(*seed)

	feed := gen.FeedText(baseDate, *n, *step)
	if err := writeFile(*feedOut, []byte(feed)); err != nil {
		return fmt.Errorf("writing feed fixture: %w", err)
	}
	log.Printf("wrote feed fixture: %s", *feedOut)

	telemetry := gen.Telemetry(baseDate, *n, *step)
	if *telemetryOut != "" {
		if err := writeJSON(*telemetryOut, telemetry); err != nil {
			return fmt.Errorf("writing telemetry fixture: %w", err)
		}
		log.Printf("wrote telemetry fixture: %s", *telemetryOut)
	}

	submissions := make([]domain.CMEEvent, *cmes)
	for i := range submissions {
		e := gen.CMEEvent()
		e.StartTime = baseDate.Add(time.Duration(i) * 2 * time.Hour)
		e.ID = fmt.Sprintf("%s-CME-%03d", e.StartTime.Format("2006-01-02T15:04:05"), i+1)
		submissions[i] = e
	}
	if *cmeOut != "" {
		if err := writeJSON(*cmeOut, submissions); err != nil {
			return fmt.Errorf("writing CME fixture: %w", err)
		}
		log.Printf("wrote CME fixture: %s", *cmeOut)
	}

	printStats(*seed, feed, telemetry, submissions)
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, append(data, '\n'))
}

func printStats(seed uint64, feed string, telemetry []domain.SeriesPoint, submissions []domain.CMEEvent) {
	report := domain.ParseFeedReport(feed, simulate.SourceTag)

	fmt.Printf("\n=== Stats for seed %d ===\n", seed)
	fmt.Printf("Feed records: %d (data starts at line %d)\n", len(report.Records), report.DataStart+1)
	printSkipped(report.Skipped)

	if latest := domain.LatestReading(report.Records); latest != nil {
		fmt.Printf("Latest reading: %s speed=%s bt=%s\n",
			latest.Timestamp.Format(time.RFC3339), formatOptional(latest.Speed), formatOptional(latest.MagneticField.Bt))
	}
	if avg := domain.WindowedAverage(report.Records, 24); avg != nil {
		fmt.Printf("24h average: speed=%.2f density=%.2f bt=%.2f over %d records\n",
			avg.Speed, avg.Density, avg.Bt, avg.Count)
	}

	feedAnomalies := domain.DetectAnomalies(domain.SeriesFromRecords(report.Records))
	fmt.Printf("Feed anomalies: %d (%s)\n", len(feedAnomalies.Anomalies), feedAnomalies.Method)

	telemetryAnomalies := domain.DetectAnomalies(telemetry)
	fmt.Printf("Telemetry anomalies: %d (%s)\n", len(telemetryAnomalies.Anomalies), telemetryAnomalies.Method)
	printAnomalyBreakdown(telemetryAnomalies)

	fmt.Println("\nCME submissions:")
	for _, e := range submissions {
		in := domain.BuildInsight(e)
		alert := domain.AlertFromInsight(in)
		fmt.Printf("  %s class=%s score=%d storm=%s direction=%s severity=%s\n",
			in.ID, in.Strength.Class, in.Strength.Score, in.Storm.Intensity, in.Direction.Label, alert.Severity)
	}
}

func printSkipped(skipped []domain.SkippedLine) {
	counts := map[string]int{}
	for _, s := range skipped {
		counts[s.Reason]++
	}
	reasons := make([]string, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, r)
	}
	slices.Sort(reasons)

	fmt.Printf("Skipped lines: %d\n", len(skipped))
	for _, r := range reasons {
		fmt.Printf("  %s: %d\n", r, counts[r])
	}
}

func printAnomalyBreakdown(report domain.AnomalyReport) {
	byReason := map[string]int{}
	var ruleBased int
	for _, a := range report.Anomalies {
		byReason[a.Reason]++
		if a.IsRuleBased {
			ruleBased++
		}
	}
	fmt.Printf("  rule-based: %d\n", ruleBased)
	for _, r := range []string{
		domain.ReasonHighBoth, domain.ReasonHighWind, domain.ReasonHighFlux,
		domain.ReasonUnusualBoth, domain.ReasonUnusualWind, domain.ReasonUnusualFlux,
	} {
		if byReason[r] > 0 {
			fmt.Printf("  %s: %d\n", r, byReason[r])
		}
	}
	if report.Thresholds != nil {
		fmt.Printf("  effective thresholds: wind=%.2f flux=%.2f\n",
			report.Thresholds.WindSpeed, report.Thresholds.ParticleFlux)
	}
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
