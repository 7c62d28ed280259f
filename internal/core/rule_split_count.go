package core

import "fmt"

// NewSplitCountRule returns the genetic-stability rule: too many splits since
// thaw escalates from a warning to a critical alert.
func NewSplitCountRule(t Thresholds) AlertRule {
	return splitCountRule{t: t}
}

type splitCountRule struct {
	t Thresholds
}

func (splitCountRule) Name() string { return "split_count" }

func (r splitCountRule) Evaluate(_ LineageView, stats AnalyticsView) []Alert {
	splits := stats.TotalSplits
	switch {
	case splits > r.t.SplitCritical:
		return []Alert{{
			Rule:     "split_count",
			Severity: SeverityCritical,
			Message: fmt.Sprintf("CRITICAL: %d splits since thawing. Consider: 1) Thaw fresh vial, "+
				"2) Karyotype analysis for genetic stability, 3) Cryopreserve if healthy.", splits),
		}}
	case splits > r.t.SplitWarning:
		return []Alert{{
			Rule:     "split_count",
			Severity: SeverityWarning,
			Message: fmt.Sprintf("Approaching split limit (%d/%d). Plan to thaw a new vial or check karyotype soon.",
				splits, r.t.SplitCritical),
		}}
	default:
		return nil
	}
}
