package domain

import "sort"

// Severity ranks an advisory emitted by the alerting engine.
type Severity string

// Alert severities in descending render priority.
const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityWarning:  1,
	SeverityInfo:     2,
}

// Alert is one advisory about a lineage, produced by a named rule.
type Alert struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"type"`
	Message  string   `json:"message"`
}

// AlertRule computes zero or more alerts from a reconstructed lineage and its
// analytics. Rules are pure functions of their inputs: no wall clock, no
// randomness, so identical data always yields identical alerts.
type AlertRule interface {
	Name() string
	Evaluate(view LineageView, stats AnalyticsView) []Alert
}

// AlertEngine runs registered rules in order and sorts the combined output by
// severity, preserving registration order within a severity band.
type AlertEngine struct {
	rules []AlertRule
}

// NewAlertEngine constructs an empty engine.
func NewAlertEngine() *AlertEngine {
	return &AlertEngine{}
}

// Register appends a rule to the engine.
func (e *AlertEngine) Register(rule AlertRule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rules in order.
func (e *AlertEngine) Rules() []AlertRule {
	out := make([]AlertRule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate executes all rules against the lineage and returns the prioritised
// alert list. An empty lineage yields an empty list.
func (e *AlertEngine) Evaluate(view LineageView, stats AnalyticsView) []Alert {
	if view.Empty() {
		return nil
	}
	var alerts []Alert
	for _, rule := range e.rules {
		alerts = append(alerts, rule.Evaluate(view, stats)...)
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return severityRank[alerts[i].Severity] < severityRank[alerts[j].Severity]
	})
	return alerts
}
