package domain

import "time"

// LineageStatus is the coarse classification rendered next to a lineage in
// selection lists and the active-set report.
type LineageStatus string

// Status thresholds follow the lab's aging convention: a culture is Aged after
// two weeks in culture and Old after a month.
const (
	StatusActive        LineageStatus = "Active"
	StatusAged          LineageStatus = "Aged"
	StatusOld           LineageStatus = "Old"
	StatusCryopreserved LineageStatus = "Cryopreserved"
)

// PassagePoint is one step of a lineage's passage progression: an event that
// carried an explicit passage number, in chronological order.
type PassagePoint struct {
	Date      string    `json:"date"`
	Passage   int       `json:"passage"`
	EventType EventType `json:"event_type"`
	Vessel    string    `json:"vessel,omitempty"`
	Medium    string    `json:"medium,omitempty"`
}

// LineageView is the reconstructed current-state-plus-history summary for one
// lineage key. A zero LineageView (Empty() == true) stands for "no such
// lineage" so speculative callers never handle errors for missing data.
type LineageView struct {
	ThawID string  `json:"thaw_id"`
	Events []Event `json:"events"`

	// Origin is the earliest Thawing event when one exists. Duplicate
	// Thawing rows are tolerated; the earliest wins.
	Origin *Event `json:"thaw_event,omitempty"`

	// Latest is the event with the maximum (date, id) ordering key. Its
	// passage, vessel, medium, and location are the lineage's current state.
	Latest *Event `json:"latest_event,omitempty"`

	PassageProgression []PassagePoint `json:"passage_progression"`

	// CultureDays is the whole-day span from Origin to Latest. Zero when the
	// origin is missing or either date is malformed. This is event-relative:
	// it does not involve the wall clock.
	CultureDays int `json:"culture_days"`

	TotalEvents int `json:"total_events"`

	CurrentPassage  *int   `json:"current_passage,omitempty"`
	CurrentVessel   string `json:"current_vessel,omitempty"`
	CurrentMedium   string `json:"current_medium,omitempty"`
	CurrentLocation string `json:"current_location,omitempty"`
}

// Empty reports whether the view holds no events.
func (v LineageView) Empty() bool { return len(v.Events) == 0 }

// Status classifies the lineage relative to now. Cryopreserved wins when the
// latest event is a Cryopreservation; otherwise the age since the origin thaw
// decides.
func (v LineageView) Status(now time.Time) LineageStatus {
	if v.Latest != nil && v.Latest.EventType == EventCryopreservation {
		return StatusCryopreserved
	}
	days := v.DaysSinceThaw(now)
	switch {
	case days > 30:
		return StatusOld
	case days > 14:
		return StatusAged
	default:
		return StatusActive
	}
}

// DaysSinceThaw returns whole days between the origin thaw and now, zero when
// the origin is absent or its date is malformed.
func (v LineageView) DaysSinceThaw(now time.Time) int {
	if v.Origin == nil {
		return 0
	}
	origin, ok := v.Origin.ParsedDate()
	if !ok {
		return 0
	}
	days := int(now.Sub(origin).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// AnalyticsView holds the secondary statistics computed from a reconstructed
// lineage. All collections are empty (never nil maps read unsafely) when the
// lineage has no data.
type AnalyticsView struct {
	ThawID string `json:"thaw_id"`

	// PassageIntervals are the day gaps between consecutive Split events in
	// chronological order. Pairs with malformed dates are skipped.
	PassageIntervals   []int   `json:"passage_intervals"`
	AvgPassageInterval float64 `json:"avg_passage_interval"`

	MediaUsed     []string `json:"media_used"`
	VesselsUsed   []string `json:"vessels_used"`
	LocationsUsed []string `json:"locations_used"`

	EventFrequency map[EventType]int `json:"event_frequency"`

	TotalSplits       int `json:"total_splits"`
	TotalObservations int `json:"total_observations"`
	MediaChanges      int `json:"media_changes"`
}

// Empty reports whether the analytics were computed from an empty lineage.
func (a AnalyticsView) Empty() bool { return a.ThawID == "" && len(a.EventFrequency) == 0 }
