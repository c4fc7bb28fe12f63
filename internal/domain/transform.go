package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrEmptySubmission is returned for a message with no payload.
var ErrEmptySubmission = errors.New("empty submission")

// submissionTimeLayouts are tried in order for startTime. DONKI omits seconds.
var submissionTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04Z07:00"}

// ParseCMESubmission decodes a CME submission message. Decoding is lenient:
// numbers may arrive as JSON numbers or numeric strings, and values that are
// null or unparsable are treated as absent so the analytics defaults apply.
// Only a payload that is not a JSON object is an error.
func ParseCMESubmission(raw RawEvent) (CMEEvent, error) {
	if len(bytes.TrimSpace(raw.Value)) == 0 {
		return CMEEvent{}, fmt.Errorf("parse cme submission: %w", ErrEmptySubmission)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw.Value, &fields); err != nil {
		return CMEEvent{}, fmt.Errorf("parse cme submission: %w", err)
	}

	e := CMEEvent{
		ID:             firstString(fields, "id", "activityID"),
		Latitude:       lenientFloat(fields["latitude"]),
		Longitude:      lenientFloat(fields["longitude"]),
		Speed:          lenientFloat(fields["speed"]),
		HalfAngle:      lenientFloat(fields["halfAngle"]),
		ParticleFlux:   lenientFloat(fields["particleFlux"]),
		IsMostAccurate: lenientBool(fields["isMostAccurate"]),
		StartTime:      raw.Timestamp.UTC(),
	}
	if s := firstString(fields, "startTime"); s != "" {
		if ts, ok := parseSubmissionTime(s); ok {
			e.StartTime = ts
		}
	}
	return e, nil
}

func parseSubmissionTime(s string) (time.Time, bool) {
	for _, layout := range submissionTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// firstString returns the first non-empty string value among keys.
func firstString(fields map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		var s string
		if err := json.Unmarshal(fields[k], &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// lenientFloat accepts a JSON number or a numeric string. Anything else,
// including null and non-finite values, is nil.
func lenientFloat(msg json.RawMessage) *float64 {
	if isNull(msg) {
		return nil
	}
	var n float64
	if err := json.Unmarshal(msg, &n); err == nil {
		return &n
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func lenientBool(msg json.RawMessage) *bool {
	if isNull(msg) {
		return nil
	}
	var b bool
	if err := json.Unmarshal(msg, &b); err == nil {
		return &b
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &b
}

func isNull(msg json.RawMessage) bool {
	return len(msg) == 0 || string(bytes.TrimSpace(msg)) == "null"
}
