package domain

import (
	"context"
	"time"
)

// Filter narrows a general event query. Zero values mean "no constraint".
type Filter struct {
	CreatedBy        string
	EventType        EventType
	ThawID           string
	Operator         string
	StartDate        string
	EndDate          string
	CellLineContains string
	Limit            int
}

// EventStore is the persistence contract the derivation layer reads from and
// the form layer writes through. Implementations back it with a single flat
// events table; every write is one autocommitted statement.
type EventStore interface {
	// Insert persists a new event and returns its assigned id. The payload
	// is validated first; a ValidationError rejects the write.
	Insert(ctx context.Context, event Event) (int64, error)

	// Update applies a field-level patch. The second return is false when
	// the id does not exist; that is not an error.
	Update(ctx context.Context, id int64, patch EventPatch) (bool, error)

	// Delete removes an event row. False when the id does not exist.
	Delete(ctx context.Context, id int64) (bool, error)

	// GetByID fetches a single event. ok is false when absent.
	GetByID(ctx context.Context, id int64) (Event, bool, error)

	// QueryByLineageKey returns every event tagged with the key, ordered by
	// (date ascending, id ascending). Id is the same-day tiebreak because
	// the logical date is user-chosen and collides freely.
	QueryByLineageKey(ctx context.Context, key string) ([]Event, error)

	// ListLineageKeysWithEventType returns the distinct non-empty lineage
	// keys owning at least one event of the given type, sorted ascending.
	ListLineageKeysWithEventType(ctx context.Context, eventType EventType) ([]string, error)

	// Query returns events matching the filter in (date, id) order.
	Query(ctx context.Context, filter Filter) ([]Event, error)

	// CountSameDayThaws counts Thawing events on the given day whose thaw id
	// starts with prefix (empty prefix counts all). Feeds thaw-id sequencing.
	CountSameDayThaws(ctx context.Context, day time.Time, prefix string) (int, error)

	Close() error
}

// RefKind names one of the runtime-extensible lookup vocabularies backing the
// entry-form dropdowns.
type RefKind string

// Supported vocabulary kinds.
const (
	RefCellLine  RefKind = "cell_line"
	RefEventType RefKind = "event_type"
	RefVessel    RefKind = "vessel"
	RefLocation  RefKind = "location"
	RefCellType  RefKind = "cell_type"
	RefMedium    RefKind = "culture_medium"
)

// RefKinds lists every vocabulary in a stable order.
func RefKinds() []RefKind {
	return []RefKind{RefCellLine, RefEventType, RefVessel, RefLocation, RefCellType, RefMedium}
}

// DefaultRefValues returns the vocabulary entries seeded into an empty
// database. Only the kinds with a useful starter set are present.
func DefaultRefValues() map[RefKind][]string {
	return map[RefKind][]string{
		RefEventType: {
			string(EventObservation), string(EventMediaChange), string(EventSplit),
			string(EventThawing), string(EventCryopreservation), string(EventOther),
		},
		RefCellType: {
			"iPSC", "NPC", "Cardiomyocyte", "Neuron", "Hepatocyte",
			"Astrocyte", "Oligodendrocyte", "Endothelial", "Fibroblast",
			"Mesenchymal Stem Cell", "Organoid", "Mixed Population",
		},
		RefMedium: {
			"StemFlex", "mTeSR1", "E8", "E6", "RPMI1640", "DMEM", "Neurobasal",
			"Cardiac Differentiation Medium", "Neural Induction Medium",
			"Organoid Medium", "Maintenance Medium", "Selection Medium",
		},
	}
}

// ReferenceStore persists the lookup vocabularies. Values are free text,
// validated only as non-empty; unknown values submitted on the event-creation
// path are auto-registered on first use.
type ReferenceStore interface {
	ListValues(ctx context.Context, kind RefKind) ([]string, error)
	AddValue(ctx context.Context, kind RefKind, name string) error
	RenameValue(ctx context.Context, kind RefKind, oldName, newName string) error
	DeleteValue(ctx context.Context, kind RefKind, name string) error
}
