package domain

import "time"

// ImportStats holds the outcome of one ingestion pass over an integration.
type ImportStats struct {
	IntegrationID int64
	GroupID       string
	Checked       int
	Imported      int
	Skipped       int
	Duration      time.Duration
}

// TestResult is the outcome of an admin connectivity check. API-level
// failures land in Error instead of becoming Go errors so the caller
// can always render the result.
type TestResult struct {
	Success    bool
	GroupName  string
	PostsCount int
	Error      string
}

// MoscowTZ is the fixed UTC+3 offset the whole system keeps its
// wall-clock timestamps in. Post dates, checkpoints and publish-time
// comparisons all go through it; see DESIGN.md for why this stays.
var MoscowTZ = time.FixedZone("MSK", 3*60*60)

// Naive strips the offset from t, keeping its wall-clock reading. The
// result round-trips unchanged through TIMESTAMP columns, matching the
// naive-timestamp convention of the rest of the system.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// NowMSK returns the current Moscow wall-clock time, naive.
func NowMSK() time.Time {
	return Naive(time.Now().In(MoscowTZ))
}
