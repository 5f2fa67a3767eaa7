package health

import (
	"time"

	"expire-map/internal/metrics"
)

// Stale records are expected after overwrites; a backlog this far above the
// stored entry count means they pile up faster than they expire.
const (
	staleBacklogFactor = 4
	staleBacklogFloor  = 1024
)

// The reaper sleeps at most its fallback interval, so handling a record
// this late means passes are not keeping up.
const maxReaperLag = 5 * time.Second

// RuleResult represents the outcome of a single rule.
type RuleResult struct {
	Triggered      bool
	Signal         string
	Recommendation string
	Severity       Status
}

// Rule evaluates a metrics snapshot.
type Rule func(snapshot map[string]int64) RuleResult

// DefaultRules are the rules an Analyzer applies unless given its own.
func DefaultRules() []Rule {
	return []Rule{
		ReaperPanicRule,
		ReaperLagRule,
		StaleBacklogRule,
		LoaderErrorRule,
	}
}

// ---------- RULES ----------

// Recovered reaper panics mean expired entries may not be reclaimed.
func ReaperPanicRule(snapshot map[string]int64) RuleResult {
	if snapshot[string(metrics.ReaperPanicsTotal)] == 0 {
		return RuleResult{}
	}
	return RuleResult{
		Triggered:      true,
		Signal:         "Reaper recovered from panics",
		Recommendation: "Inspect the reaper error logs; memory may grow until it recovers",
		Severity:       StatusCritical,
	}
}

// A lagging reaper keeps expired entries in memory well past their TTL.
func ReaperLagRule(snapshot map[string]int64) RuleResult {
	if snapshot[string(metrics.ReaperLagMillis)] <= maxReaperLag.Milliseconds() {
		return RuleResult{}
	}
	return RuleResult{
		Triggered:      true,
		Signal:         "Reaper is falling behind expiries",
		Recommendation: "Lower the fallback interval or reduce the rate of short-lived writes",
		Severity:       StatusDegraded,
	}
}

// A large stale backlog means the index holds far more records than the store holds entries.
func StaleBacklogRule(snapshot map[string]int64) RuleResult {
	records := snapshot[string(metrics.IndexRecords)]
	stored := snapshot[string(metrics.EntriesStored)]

	if records <= staleBacklogFloor || records <= staleBacklogFactor*stored {
		return RuleResult{}
	}
	return RuleResult{
		Triggered:      true,
		Signal:         "Expiration index holds a large stale backlog",
		Recommendation: "Avoid overwriting long-lived keys in tight loops or use shorter TTLs",
		Severity:       StatusDegraded,
	}
}

// Loader errors mean GetOrLoad callers saw failures.
func LoaderErrorRule(snapshot map[string]int64) RuleResult {
	if snapshot[string(metrics.LoaderErrorsTotal)] == 0 {
		return RuleResult{}
	}
	return RuleResult{
		Triggered:      true,
		Signal:         "Loader errors detected",
		Recommendation: "Check the backing source used by GetOrLoad",
		Severity:       StatusDegraded,
	}
}
