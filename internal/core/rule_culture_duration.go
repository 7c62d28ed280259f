package core

import "fmt"

// NewCultureDurationRule flags cultures whose age exceeds the lineage's own
// average split interval by the configured factor. The comparison is relative
// to the lineage's latest event, not the wall clock.
func NewCultureDurationRule(t Thresholds) AlertRule {
	return cultureDurationRule{t: t}
}

type cultureDurationRule struct {
	t Thresholds
}

func (cultureDurationRule) Name() string { return "culture_duration" }

func (r cultureDurationRule) Evaluate(view LineageView, stats AnalyticsView) []Alert {
	if stats.AvgPassageInterval <= 0 {
		return nil
	}
	if float64(view.CultureDays) <= r.t.IntervalFactor*stats.AvgPassageInterval {
		return nil
	}
	return []Alert{{
		Rule:     "culture_duration",
		Severity: SeverityInfo,
		Message:  fmt.Sprintf("Culture duration (%d days) exceeds average split interval. Consider splitting.", view.CultureDays),
	}}
}
