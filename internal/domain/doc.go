// Package domain models real-time solar wind measurements and coronal mass
// ejection (CME) analytics.
//
// # Data Source
//
// Solar wind readings come from the NOAA Space Weather Prediction Center (SWPC)
// real-time solar wind text products (plasma + magnetometer), e.g.
// https://services.swpc.noaa.gov/text/. The feed is fetched by the noaa adapter
// and handed to [ParseFeed] as plain text. CME events arrive either as
// submissions on the Kafka source topic (DONKI-style JSON) or are derived from
// anomalies detected in the feed.
//
// # Feed Conventions
//
// Header and comment lines precede the data section:
//
//	:Data_list: rtsw_wind_1m.txt
//	# Units: Density p/cc  Speed km/s  Temperature K  B nT
//	2024-05-10 17:30:00   4.21   412.3   81234   -2.10   3.40  -6.80   7.90
//
// The data section starts at the first line (within the first 10) that begins
// with a YYYY-MM-DD date. Columns, whitespace separated:
//
//	[0] date  [1] time  [2] density  [3] speed  [4] temperature
//	[5] bx    [6] by    [7] bz       [8] bt
//
// Older archive files use MM/DD/YYYY dates; both encodings are read as UTC.
// The two differ on out-of-range parts: an ISO date such as 2024-02-30 is
// rejected and the line skipped, while MM/DD/YYYY parts are assembled with
// time.Date and normalize (02/30/2024 becomes March 1, month 13 rolls into
// the next year).
// Values that do not parse as finite numbers ("-", "null", "NaN") become nil
// rather than zero. Bt is back-filled from the
// vector components when the column is absent. Lines without any of speed,
// density or bt are dropped.
//
// # Anomaly Detection
//
// [DetectAnomalies] combines two independent tests per record:
//
//	statistical: value > mean + 2σ (population σ, per metric)
//	rule-based:  wind speed > 700 km/s, particle flux > 500
//
// The reported [AnomalyRecord.Type] reflects the statistical tests only, so a
// purely rule-based wind anomaly is typed "flux". Consumers key off Reason and
// IsRuleBased instead.
//
// # CME Analytics
//
// Strength, direction, storm intensity, impact forecast and sector impacts are
// pure functions of a [CMEEvent]. Event fields are explicit optionals; the
// *OrDefault accessors document the fallback each analytic uses. A CME at
// exactly 0°/0° is indistinguishable from one without coordinates in
// [EstimateDirection] and [ForecastImpact]; [CMEEvent.HasCoordinates] exposes
// the difference to callers that care.
//
// Kp to NOAA G-scale:
//
//	Kp ≥ 8 G4 | Kp ≥ 6 G3 | Kp = 5 G2 | Kp = 4 G1 | otherwise G0
//
// # ID Generation
//
// Insight IDs are deterministic SHA-256 hashes of the CME parameters, and
// alert IDs are name-based UUIDs, so replays upsert instead of duplicating.
package domain
