// Package domain defines the persistent event record, the derived lineage
// view types, and the alerting primitives used by vialtrack.
package domain

import (
	"fmt"
	"time"
)

// EventType classifies a culture event. The vocabulary is open: users may
// register new types at runtime, so values beyond the canonical set below are
// valid and flow through the system untouched.
type EventType string

// Canonical event types recognised by the derivation engines. Thawing opens a
// lineage, Split conventionally increments passage, Cryopreservation closes a
// lineage for the purposes of the active-set scan.
const (
	EventThawing          EventType = "Thawing"
	EventSplit            EventType = "Split"
	EventMediaChange      EventType = "Media Change"
	EventObservation      EventType = "Observation"
	EventCryopreservation EventType = "Cryopreservation"
	EventOther            EventType = "Other"
)

// DateLayout is the storage format of user-supplied logical dates. The date is
// the day the event happened in the lab, chosen by the operator; it is not the
// row creation time.
const DateLayout = "2006-01-02"

// Event is one recorded laboratory action. It is the only persisted entity the
// derivation layer reads; all lineage state is reconstructed from ordered sets
// of these rows.
type Event struct {
	ID int64 `json:"id"`

	// Date is the logical event date as an ISO day string. It may fail to
	// parse; day-delta computations degrade to zero in that case.
	Date string `json:"date"`

	CellLine  string    `json:"cell_line,omitempty"`
	EventType EventType `json:"event_type"`

	// Passage is a culture-age counter. Monotonic increase on Split events
	// is lab convention, not an enforced invariant.
	Passage *int `json:"passage,omitempty"`

	Vessel   string `json:"vessel,omitempty"`
	Location string `json:"location,omitempty"`
	Medium   string `json:"medium,omitempty"`
	CellType string `json:"cell_type,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Operator string `json:"operator,omitempty"`

	// ThawID is the canonical lineage key grouping every event derived from
	// one physical cryovial. Empty means the event is not tied to a lineage.
	ThawID string `json:"thaw_id,omitempty"`

	// LinkedThawID associates an event with an existing lineage for display
	// and filtering without making it part of that lineage's reconstruction.
	// ThawID is the only field the derivation layer groups on.
	LinkedThawID string `json:"linked_thaw_id,omitempty"`

	CryoVialPosition string `json:"cryo_vial_position,omitempty"`

	// AttachmentKey references an optional blob (typically a culture image)
	// held in the attachment store. Deleting the event deletes the blob on a
	// best-effort basis.
	AttachmentKey string `json:"attachment_key,omitempty"`

	AssignedTo     string   `json:"assigned_to,omitempty"`
	NextActionDate string   `json:"next_action_date,omitempty"`
	Volume         *float64 `json:"volume,omitempty"`

	ExperimentType         string `json:"experiment_type,omitempty"`
	ExperimentStage        string `json:"experiment_stage,omitempty"`
	ExperimentalConditions string `json:"experimental_conditions,omitempty"`
	ProtocolReference      string `json:"protocol_reference,omitempty"`
	OutcomeStatus          string `json:"outcome_status,omitempty"`
	SuccessMetrics         string `json:"success_metrics,omitempty"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// ParsedDate returns the event's logical date. ok is false when the field is
// empty or malformed; callers are expected to degrade rather than fail.
func (e Event) ParsedDate() (time.Time, bool) {
	if e.Date == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, e.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EventPatch carries a field-level partial update. Nil pointers leave the
// stored column untouched, mirroring form submissions that edit a subset of
// fields.
type EventPatch struct {
	Date             *string
	CellLine         *string
	EventType        *EventType
	Passage          *int
	Vessel           *string
	Location         *string
	Medium           *string
	CellType         *string
	Notes            *string
	Operator         *string
	ThawID           *string
	LinkedThawID     *string
	CryoVialPosition *string
	AttachmentKey    *string
	AssignedTo       *string
	NextActionDate   *string
	Volume           *float64
}

// Validate checks the invariants enforced at the store write boundary. The
// derivation layer never validates; only writes are rejected.
func (e Event) Validate() error {
	if e.Date == "" {
		return ValidationError{Field: "date", Reason: "required"}
	}
	if _, err := time.Parse(DateLayout, e.Date); err != nil {
		return ValidationError{Field: "date", Reason: fmt.Sprintf("not a valid %s date", DateLayout)}
	}
	if e.EventType == "" {
		return ValidationError{Field: "event_type", Reason: "required"}
	}
	if e.CreatedBy == "" {
		return ValidationError{Field: "created_by", Reason: "required"}
	}
	return nil
}
