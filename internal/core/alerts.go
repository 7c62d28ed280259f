package core

import "vialtrack/pkg/domain"

// Thresholds parameterises the alert heuristics. The defaults mirror the
// lab's working limits for iPSC culture; they are configuration, not derived
// from any model.
type Thresholds struct {
	// SplitCritical is the split count above which genetic stability is in
	// question (karyotype / fresh thaw advice).
	SplitCritical int
	// SplitWarning is the split count above which the limit warning fires.
	SplitWarning int
	// PassageWarning is the passage number above which cryopreservation or
	// differentiation is suggested.
	PassageWarning int
	// IntervalFactor scales the mean split interval for the overdue-split
	// advisory.
	IntervalFactor float64
	// ObservationLookback is how many trailing events are checked for an
	// Observation.
	ObservationLookback int
	// ObservationMinEvents suppresses the observation advisory for very
	// short histories (fires only when total events exceed it).
	ObservationMinEvents int
}

// DefaultThresholds returns the standard limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SplitCritical:        10,
		SplitWarning:         8,
		PassageWarning:       10,
		IntervalFactor:       1.5,
		ObservationLookback:  3,
		ObservationMinEvents: 2,
	}
}

// NewDefaultAlertEngine builds an alert engine with the built-in rule set.
func NewDefaultAlertEngine(t Thresholds) *AlertEngine {
	engine := domain.NewAlertEngine()
	engine.Register(NewSplitCountRule(t))
	engine.Register(NewPassageLimitRule(t))
	engine.Register(NewCultureDurationRule(t))
	engine.Register(NewObservationGapRule(t))
	return engine
}
