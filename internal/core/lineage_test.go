package core

import (
	"testing"
	"time"

	"vialtrack/pkg/domain"
)

func intPtr(v int) *int { return &v }

func mustDate(t *testing.T, day string) time.Time {
	t.Helper()
	parsed, err := time.Parse(domain.DateLayout, day)
	if err != nil {
		t.Fatalf("parse %q: %v", day, err)
	}
	return parsed
}

func TestBuildLineageViewEmpty(t *testing.T) {
	view := BuildLineageView("TH-UNKNOWN", nil)
	if !view.Empty() {
		t.Fatalf("expected empty view, got %+v", view)
	}
	if view.CultureDays != 0 || view.TotalEvents != 0 {
		t.Fatalf("expected zero-valued view, got %+v", view)
	}
}

func TestBuildLineageViewCurrentState(t *testing.T) {
	events := []Event{
		{ID: 1, Date: "2026-01-05", EventType: EventThawing, Passage: intPtr(1), Vessel: "T25", Location: "Incubator 1", Medium: "mTeSR"},
		{ID: 2, Date: "2026-01-08", EventType: EventSplit, Passage: intPtr(2), Vessel: "6-well", Location: "Incubator 1", Medium: "mTeSR"},
		{ID: 3, Date: "2026-01-12", EventType: EventMediaChange, Vessel: "6-well", Location: "Incubator 2", Medium: "E8"},
	}
	view := BuildLineageView("TH-20260105-001", events)

	if view.Origin == nil || view.Origin.ID != 1 {
		t.Fatalf("expected origin event 1, got %+v", view.Origin)
	}
	if view.Latest == nil || view.Latest.ID != 3 {
		t.Fatalf("expected latest event 3, got %+v", view.Latest)
	}
	// The latest event carries no passage; current passage mirrors it.
	if view.CurrentPassage != nil {
		t.Fatalf("expected nil current passage, got %d", *view.CurrentPassage)
	}
	if view.CurrentVessel != "6-well" || view.CurrentMedium != "E8" || view.CurrentLocation != "Incubator 2" {
		t.Fatalf("unexpected current state: %+v", view)
	}
	if view.CultureDays != 7 {
		t.Fatalf("expected 7 culture days, got %d", view.CultureDays)
	}
	if view.TotalEvents != 3 {
		t.Fatalf("expected 3 events, got %d", view.TotalEvents)
	}
	if len(view.PassageProgression) != 2 {
		t.Fatalf("expected 2 passage points, got %d", len(view.PassageProgression))
	}
	if view.PassageProgression[1].Passage != 2 || view.PassageProgression[1].EventType != EventSplit {
		t.Fatalf("unexpected progression point: %+v", view.PassageProgression[1])
	}
}

func TestBuildLineageViewDuplicateThaws(t *testing.T) {
	events := []Event{
		{ID: 1, Date: "2026-02-01", EventType: EventThawing},
		{ID: 2, Date: "2026-02-03", EventType: EventThawing},
		{ID: 3, Date: "2026-02-05", EventType: EventObservation},
	}
	view := BuildLineageView("TH-DUP", events)
	if view.Origin == nil || view.Origin.ID != 1 {
		t.Fatalf("expected earliest thaw as origin, got %+v", view.Origin)
	}
	if view.CultureDays != 4 {
		t.Fatalf("expected culture days from earliest thaw, got %d", view.CultureDays)
	}
}

func TestBuildLineageViewNoThawEvent(t *testing.T) {
	events := []Event{
		{ID: 5, Date: "2026-03-01", EventType: EventObservation},
	}
	view := BuildLineageView("TH-NOTHAW", events)
	if view.Origin != nil {
		t.Fatalf("expected no origin, got %+v", view.Origin)
	}
	if view.CultureDays != 0 {
		t.Fatalf("expected zero culture days without origin, got %d", view.CultureDays)
	}
	if view.Latest == nil || view.Latest.ID != 5 {
		t.Fatalf("latest should still be derived, got %+v", view.Latest)
	}
}

func TestBuildLineageViewMalformedDates(t *testing.T) {
	cases := []struct {
		name   string
		events []Event
	}{
		{"bad origin", []Event{
			{ID: 1, Date: "not-a-date", EventType: EventThawing},
			{ID: 2, Date: "2026-01-10", EventType: EventSplit},
		}},
		{"bad latest", []Event{
			{ID: 1, Date: "2026-01-01", EventType: EventThawing},
			{ID: 2, Date: "01/10/2026", EventType: EventSplit},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			view := BuildLineageView("TH-BAD", tc.events)
			if view.CultureDays != 0 {
				t.Fatalf("expected degraded culture days, got %d", view.CultureDays)
			}
			if view.TotalEvents != 2 {
				t.Fatalf("malformed dates must not drop events, got %d", view.TotalEvents)
			}
		})
	}
}

func TestLineageStatusClassification(t *testing.T) {
	now := mustDate(t, "2026-06-01")
	base := []Event{{ID: 1, Date: "2026-05-25", EventType: EventThawing}}

	view := BuildLineageView("TH-A", base)
	if got := view.Status(now); got != StatusActive {
		t.Fatalf("expected Active, got %s", got)
	}

	aged := BuildLineageView("TH-B", []Event{{ID: 1, Date: "2026-05-10", EventType: EventThawing}})
	if got := aged.Status(now); got != StatusAged {
		t.Fatalf("expected Aged, got %s", got)
	}

	old := BuildLineageView("TH-C", []Event{{ID: 1, Date: "2026-04-01", EventType: EventThawing}})
	if got := old.Status(now); got != StatusOld {
		t.Fatalf("expected Old, got %s", got)
	}

	frozen := BuildLineageView("TH-D", []Event{
		{ID: 1, Date: "2026-04-01", EventType: EventThawing},
		{ID: 2, Date: "2026-04-10", EventType: EventCryopreservation},
	})
	if got := frozen.Status(now); got != StatusCryopreserved {
		t.Fatalf("expected Cryopreserved, got %s", got)
	}
}
