package health

import "expire-map/internal/metrics"

// severity orders statuses so the worst one wins.
var severity = map[Status]int{
	StatusOK:       0,
	StatusDegraded: 1,
	StatusCritical: 2,
}

// Analyzer turns a map's metrics into a health report.
type Analyzer struct {
	metrics *metrics.Registry
	rules   []Rule
}

// NewAnalyzer creates an analyzer over reg. With no rules it applies DefaultRules.
func NewAnalyzer(reg *metrics.Registry, rules ...Rule) *Analyzer {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Analyzer{metrics: reg, rules: rules}
}

// Analyze evaluates every rule against one metrics snapshot.
func (a *Analyzer) Analyze() Report {
	snapshot := a.metrics.Snapshot()

	report := Report{
		OverallStatus:   StatusOK,
		Signals:         []string{},
		Recommendations: []string{},
	}

	for _, rule := range a.rules {
		result := rule(snapshot)
		if !result.Triggered {
			continue
		}

		report.Signals = append(report.Signals, result.Signal)
		report.Recommendations = append(report.Recommendations, result.Recommendation)
		if severity[result.Severity] > severity[report.OverallStatus] {
			report.OverallStatus = result.Severity
		}
	}

	report.Summary = "Map is healthy"
	if report.OverallStatus != StatusOK {
		report.Summary = "Map health issues detected"
	}
	return report
}
