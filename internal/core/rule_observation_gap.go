package core

// NewObservationGapRule nudges operators when a lineage with meaningful
// history has no Observation among its most recent events.
func NewObservationGapRule(t Thresholds) AlertRule {
	return observationGapRule{t: t}
}

type observationGapRule struct {
	t Thresholds
}

func (observationGapRule) Name() string { return "observation_gap" }

func (r observationGapRule) Evaluate(view LineageView, _ AnalyticsView) []Alert {
	if view.TotalEvents <= r.t.ObservationMinEvents {
		return nil
	}
	start := len(view.Events) - r.t.ObservationLookback
	if start < 0 {
		start = 0
	}
	for _, ev := range view.Events[start:] {
		if ev.EventType == EventObservation {
			return nil
		}
	}
	return []Alert{{
		Rule:     "observation_gap",
		Severity: SeverityInfo,
		Message:  "No recent observations recorded. Consider adding a culture status update.",
	}}
}
