package domain

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	// headerScanLines bounds the search for the first data line.
	headerScanLines = 10
	minFeedFields   = 6
)

var (
	isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	usDateRe  = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
)

// Column positions in a feed data line.
const (
	colDate = iota
	colTime
	colDensity
	colSpeed
	colTemperature
	colBx
	colBy
	colBz
	colBt
)

// SkippedLine records a data line the parser dropped and why.
type SkippedLine struct {
	Line   int    `json:"line"` // 1-based
	Reason string `json:"reason"`
}

// Skip reasons reported in [FeedReport].
const (
	SkipTooFewFields   = "too few fields"
	SkipUnknownDate    = "unrecognized date format"
	SkipInvalidTime    = "invalid timestamp"
	SkipNoMeasurements = "no speed, density or bt"
)

// FeedReport is the full result of parsing a feed: the retained records plus
// diagnostics for each skipped line.
type FeedReport struct {
	Records   []MeasurementRecord `json:"records"`
	Skipped   []SkippedLine       `json:"skipped"`
	DataStart int                 `json:"data_start"` // 0-based index of the first data line
}

// ParseFeed parses whitespace-delimited solar wind feed text into records
// sorted ascending by timestamp. Malformed lines are dropped; it never fails.
func ParseFeed(raw, source string) []MeasurementRecord {
	return ParseFeedReport(raw, source).Records
}

// ParseFeedReport is [ParseFeed] with per-line skip diagnostics.
func ParseFeedReport(raw, source string) FeedReport {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	start := findDataStart(lines)

	report := FeedReport{
		Records:   make([]MeasurementRecord, 0, len(lines)-start),
		DataStart: start,
	}
	for i := start; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		rec, reason := parseFeedLine(line, source)
		if reason != "" {
			report.Skipped = append(report.Skipped, SkippedLine{Line: i + 1, Reason: reason})
			continue
		}
		report.Records = append(report.Records, rec)
	}

	slices.SortStableFunc(report.Records, func(a, b MeasurementRecord) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return report
}

// findDataStart returns the index of the first line within the scan window
// that starts with a YYYY-MM-DD date, or 0 when none does.
func findDataStart(lines []string) int {
	for i := 0; i < len(lines) && i < headerScanLines; i++ {
		if isoDateRe.MatchString(strings.TrimSpace(lines[i])) {
			return i
		}
	}
	return 0
}

func parseFeedLine(line, source string) (MeasurementRecord, string) {
	fields := strings.Fields(line)
	if len(fields) < minFeedFields {
		return MeasurementRecord{}, SkipTooFewFields
	}

	ts, reason := parseFeedTimestamp(fields[colDate], fields[colTime])
	if reason != "" {
		return MeasurementRecord{}, reason
	}

	rec := MeasurementRecord{
		Timestamp:   ts,
		Density:     fieldAt(fields, colDensity),
		Speed:       fieldAt(fields, colSpeed),
		Temperature: fieldAt(fields, colTemperature),
		Bx:          fieldAt(fields, colBx),
		By:          fieldAt(fields, colBy),
		Bz:          fieldAt(fields, colBz),
		Bt:          fieldAt(fields, colBt),
		Source:      source,
	}
	if rec.Bt == nil && rec.Bx != nil && rec.By != nil && rec.Bz != nil {
		bt := math.Sqrt(*rec.Bx**rec.Bx + *rec.By**rec.By + *rec.Bz**rec.Bz)
		rec.Bt = &bt
	}
	if !rec.HasPrimaryMeasurement() {
		return MeasurementRecord{}, SkipNoMeasurements
	}
	return rec, ""
}

// parseFeedTimestamp reads either "YYYY-MM-DD HH:MM:SS" or "MM/DD/YYYY HH:MM:SS"
// as UTC. ISO dates must be valid calendar dates; US dates normalize.
func parseFeedTimestamp(date, clockField string) (time.Time, string) {
	switch {
	case isoDateRe.MatchString(date):
		for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04"} {
			if ts, err := time.Parse(layout, date+" "+clockField); err == nil {
				return ts.UTC(), ""
			}
		}
		return time.Time{}, SkipInvalidTime
	case usDateRe.MatchString(date):
		ts, ok := buildUSTimestamp(date, clockField)
		if !ok {
			return time.Time{}, SkipInvalidTime
		}
		return ts, ""
	default:
		return time.Time{}, SkipUnknownDate
	}
}

// buildUSTimestamp constructs a time from explicit calendar parts. Out-of-range
// parts normalize the way time.Date does (month 13 rolls into next year).
func buildUSTimestamp(date, clockField string) (time.Time, bool) {
	dp := strings.Split(date, "/")
	tp := strings.Split(clockField, ":")
	if len(tp) != 3 {
		return time.Time{}, false
	}

	parts := make([]int, 0, 6)
	for _, s := range append(dp, tp...) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, false
		}
		parts = append(parts, n)
	}
	month, day, year := parts[0], parts[1], parts[2]
	hour, minute, sec := parts[3], parts[4], parts[5]
	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC), true
}

// fieldAt parses fields[i] as a finite float, or returns nil.
func fieldAt(fields []string, i int) *float64 {
	if i >= len(fields) {
		return nil
	}
	v, err := strconv.ParseFloat(fields[i], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
