package core

import "fmt"

// NewPassageLimitRule warns when the current passage number exceeds the
// configured ceiling.
func NewPassageLimitRule(t Thresholds) AlertRule {
	return passageLimitRule{t: t}
}

type passageLimitRule struct {
	t Thresholds
}

func (passageLimitRule) Name() string { return "passage_limit" }

func (r passageLimitRule) Evaluate(view LineageView, _ AnalyticsView) []Alert {
	if view.CurrentPassage == nil || *view.CurrentPassage <= r.t.PassageWarning {
		return nil
	}
	return []Alert{{
		Rule:     "passage_limit",
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("High passage number (P%d). Consider cryopreservation or differentiation.", *view.CurrentPassage),
	}}
}
