package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// alertNamespace scopes name-based alert IDs.
var alertNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("space-weather-etl/alerts"))

// Alert is the message handed to alert sinks.
type Alert struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason"`
	EtaHours  *float64  `json:"etaHours"`
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
	Source    string    `json:"source"`
}

// IsHighSeverity reports whether the alert should be forwarded to sinks.
func (a Alert) IsHighSeverity() bool {
	return a.Severity == SeverityHigh || a.Severity == SeverityExtreme
}

// AlertFromAnomaly shapes an anomaly into an alert. Severity is the highest
// threshold band any tested value reaches; rule-based anomalies are at least
// high and all others at least low. The ETA comes from insight when given.
func AlertFromAnomaly(a AnomalyRecord, insight *Insight, source string) Alert {
	severity := SeverityLow
	if v := a.MetricValues.WindSpeed; v != nil {
		severity = maxSeverity(severity, SeverityForValue(MetricWindSpeed, *v))
	}
	if v := a.MetricValues.ParticleFlux; v != nil {
		severity = maxSeverity(severity, SeverityForValue(MetricParticleFlux, *v))
	}
	if a.IsRuleBased {
		severity = maxSeverity(severity, SeverityHigh)
	}

	var eta *float64
	if insight != nil {
		eta = insight.Forecast.EtaHours
	}
	return Alert{
		ID:        alertID(source, a.Reason, a.Timestamp),
		Reason:    a.Reason,
		EtaHours:  eta,
		Timestamp: a.Timestamp,
		Severity:  severity,
		Source:    source,
	}
}

// AlertFromInsight shapes an insight into an alert, grading severity by
// storm scale and strength class.
func AlertFromInsight(in Insight) Alert {
	severity := SeverityLow
	switch {
	case in.Storm.Intensity == "G4":
		severity = SeverityExtreme
	case in.Strength.Class == ClassHigh || in.Storm.Intensity == "G3":
		severity = SeverityHigh
	case in.Strength.Class == ClassMedium:
		severity = SeverityMedium
	}

	reason := fmt.Sprintf("%s CME: %s", in.Strength.Class, in.Forecast.Summary)
	return Alert{
		ID:        alertID(in.ID, reason, in.GeneratedAt),
		Reason:    reason,
		EtaHours:  in.Forecast.EtaHours,
		Timestamp: in.GeneratedAt,
		Severity:  severity,
		Source:    in.ID,
	}
}

// alertID is stable for the same source, reason and instant so sinks can
// deduplicate replays.
func alertID(source, reason string, ts time.Time) string {
	name := source + "|" + reason + "|" + ts.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(alertNamespace, []byte(name)).String()
}
