package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"vialtrack/internal/attach"
	"vialtrack/internal/infra/persistence/memory"
	"vialtrack/pkg/domain"
)

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	base := []ServiceOption{WithReferenceStore(store)}
	svc := NewService(store, append(base, opts...)...)
	t.Cleanup(func() {
		if err := svc.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return svc, store
}

func createEvent(t *testing.T, svc *Service, event Event) Event {
	t.Helper()
	created, err := svc.CreateEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return created
}

// The canonical worked scenario: thaw, two splits, one observation.
func TestLineageScenario(t *testing.T) {
	ctx := context.Background()
	fixed := mustDay("2026-01-08")
	svc, _ := newTestService(t, WithClock(func() time.Time { return fixed }))

	thaw := createEvent(t, svc, Event{
		Date:      "2026-01-01",
		CellLine:  "KOLF2.1J",
		EventType: EventThawing,
		Passage:   intPtr(1),
		Vessel:    "T25",
		Medium:    "mTeSR",
		Operator:  "John Smith",
		CellType:  "iPSC",
		CreatedBy: "jsmith",
	})
	if thaw.ThawID == "" {
		t.Fatalf("expected generated thaw id")
	}
	key := thaw.ThawID

	createEvent(t, svc, Event{
		Date: "2026-01-04", EventType: EventSplit, Passage: intPtr(2),
		ThawID: key, CreatedBy: "jsmith",
	})
	createEvent(t, svc, Event{
		Date: "2026-01-07", EventType: EventSplit, Passage: intPtr(3),
		ThawID: key, CreatedBy: "jsmith",
	})
	createEvent(t, svc, Event{
		Date: "2026-01-08", EventType: EventObservation,
		Notes: "healthy colonies", ThawID: key, CreatedBy: "jsmith",
	})

	view, err := svc.Reconstruct(ctx, key)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if view.TotalEvents != 4 {
		t.Fatalf("expected 4 events, got %d", view.TotalEvents)
	}
	if view.CurrentPassage != nil {
		t.Fatalf("latest observation has no passage, got %d", *view.CurrentPassage)
	}
	if len(view.PassageProgression) != 3 || view.PassageProgression[2].Passage != 3 {
		t.Fatalf("unexpected progression: %+v", view.PassageProgression)
	}
	if view.CultureDays != 7 {
		t.Fatalf("expected 7 culture days, got %d", view.CultureDays)
	}

	stats, err := svc.Analyze(ctx, key)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !reflect.DeepEqual(stats.PassageIntervals, []int{3}) {
		t.Fatalf("expected intervals [3], got %v", stats.PassageIntervals)
	}
	if stats.AvgPassageInterval != 3 {
		t.Fatalf("expected mean 3, got %f", stats.AvgPassageInterval)
	}

	alerts, err := svc.Alerts(ctx, key)
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts for a healthy young culture, got %+v", alerts)
	}

	active, err := svc.ActiveVials(ctx, 30)
	if err != nil {
		t.Fatalf("active vials: %v", err)
	}
	if len(active) != 1 || active[0].ThawID != key {
		t.Fatalf("expected lineage in active set, got %+v", active)
	}
}

func TestReconstructUnknownKey(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	view, err := svc.Reconstruct(ctx, "TH-NOPE")
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if !view.Empty() {
		t.Fatalf("expected empty view, got %+v", view)
	}

	stats, err := svc.Analyze(ctx, "TH-NOPE")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !stats.Empty() {
		t.Fatalf("expected empty analytics, got %+v", stats)
	}

	alerts, err := svc.Alerts(ctx, "TH-NOPE")
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %+v", alerts)
	}
}

func TestCreateEventValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		event Event
	}{
		{"missing date", Event{EventType: EventSplit, CreatedBy: "u"}},
		{"bad date", Event{Date: "01/02/2026", EventType: EventSplit, CreatedBy: "u"}},
		{"missing type", Event{Date: "2026-01-01", CreatedBy: "u"}},
		{"missing creator", Event{Date: "2026-01-01", EventType: EventSplit}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateEvent(ctx, tc.event)
			var verr domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateEventRegistersVocabulary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	createEvent(t, svc, Event{
		Date: "2026-02-01", CellLine: "WTC-11", EventType: EventThawing,
		Vessel: "T75", Medium: "E8", CellType: "iPSC", CreatedBy: "u",
	})

	lines, err := svc.ReferenceValues(ctx, domain.RefCellLine)
	if err != nil {
		t.Fatalf("list cell lines: %v", err)
	}
	found := false
	for _, line := range lines {
		if line == "WTC-11" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected WTC-11 in cell lines, got %v", lines)
	}
}

func TestUpdateAndDeleteEvent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	event := createEvent(t, svc, Event{
		Date: "2026-02-01", EventType: EventObservation, Notes: "ok", CreatedBy: "u",
	})

	notes := "confluent"
	ok, err := svc.UpdateEvent(ctx, event.ID, EventPatch{Notes: &notes})
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	got, found, err := svc.GetEvent(ctx, event.ID)
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if got.Notes != "confluent" {
		t.Fatalf("patch not applied: %+v", got)
	}

	bad := "2026-13-99"
	if _, err := svc.UpdateEvent(ctx, event.ID, EventPatch{Date: &bad}); err == nil {
		t.Fatalf("expected validation error for bad date patch")
	}

	ok, err = svc.UpdateEvent(ctx, 9999, EventPatch{Notes: &notes})
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if ok {
		t.Fatalf("expected false for missing id")
	}

	ok, err = svc.DeleteEvent(ctx, event.ID)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if _, found, _ := svc.GetEvent(ctx, event.ID); found {
		t.Fatalf("event survived delete")
	}

	ok, err = svc.DeleteEvent(ctx, event.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if ok {
		t.Fatalf("expected false for repeated delete")
	}
}

func TestAttachmentLifecycle(t *testing.T) {
	blobs := attach.NewMemory()
	svc, _ := newTestService(t, WithAttachmentStore(blobs))
	ctx := context.Background()

	event := createEvent(t, svc, Event{
		Date: "2026-02-01", EventType: EventObservation, CreatedBy: "u",
	})

	key, err := svc.AttachFile(ctx, event.ID, "colony.png", "image/png", strings.NewReader("fake image"))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if !strings.HasSuffix(key, ".png") {
		t.Fatalf("expected extension preserved, got %q", key)
	}

	got, _, err := svc.GetEvent(ctx, event.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AttachmentKey != key {
		t.Fatalf("attachment key not bound: %+v", got)
	}

	url, err := svc.AttachmentURL(ctx, event.ID, time.Minute)
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if url == "" {
		t.Fatalf("expected non-empty url")
	}

	// Deleting the event removes the blob as well.
	if _, err := svc.DeleteEvent(ctx, event.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := blobs.Head(ctx, key); err == nil {
		t.Fatalf("expected blob gone after event delete")
	}
}

func TestActiveVialsCryoRecency(t *testing.T) {
	now := mustDay("2026-06-01")
	svc, _ := newTestService(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	// Recently frozen: excluded.
	createEvent(t, svc, Event{Date: "2026-05-01", EventType: EventThawing, ThawID: "TH-RECENT", CreatedBy: "u"})
	createEvent(t, svc, Event{Date: "2026-05-28", EventType: EventCryopreservation, ThawID: "TH-RECENT", CreatedBy: "u"})

	// Frozen long ago: still reported.
	createEvent(t, svc, Event{Date: "2026-01-01", EventType: EventThawing, ThawID: "TH-OLDCRYO", CreatedBy: "u"})
	createEvent(t, svc, Event{Date: "2026-02-01", EventType: EventCryopreservation, ThawID: "TH-OLDCRYO", CreatedBy: "u"})

	// Freeze entered ahead of time: already spoken for, excluded.
	createEvent(t, svc, Event{Date: "2026-05-10", EventType: EventThawing, ThawID: "TH-FUTURE", CreatedBy: "u"})
	createEvent(t, svc, Event{Date: "2026-06-03", EventType: EventCryopreservation, ThawID: "TH-FUTURE", CreatedBy: "u"})

	// Never thawed: not a lineage for the active scan.
	createEvent(t, svc, Event{Date: "2026-05-20", EventType: EventObservation, ThawID: "TH-NOTHAW", CreatedBy: "u"})

	// Plain active lineage.
	createEvent(t, svc, Event{Date: "2026-05-15", EventType: EventThawing, ThawID: "TH-ALIVE", CreatedBy: "u"})

	views, err := svc.ActiveVials(ctx, 30)
	if err != nil {
		t.Fatalf("active vials: %v", err)
	}
	keys := make([]string, 0, len(views))
	for _, v := range views {
		keys = append(keys, v.ThawID)
	}
	want := []string{"TH-ALIVE", "TH-OLDCRYO"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
}

func TestLineageSummariesAndOptions(t *testing.T) {
	now := mustDay("2026-06-01")
	svc, _ := newTestService(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	createEvent(t, svc, Event{
		Date: "2026-05-20", CellLine: "KOLF2.1J", EventType: EventThawing,
		Passage: intPtr(5), Vessel: "T25", Location: "Inc 1", ThawID: "TH-S", CreatedBy: "u",
	})
	createEvent(t, svc, Event{
		Date: "2026-05-25", EventType: EventSplit, Passage: intPtr(6),
		Vessel: "6-well", Location: "Inc 2", ThawID: "TH-S", CreatedBy: "u",
	})

	summaries, err := svc.LineageSummaries(ctx, 30)
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected one summary, got %+v", summaries)
	}
	sum := summaries[0]
	if sum.CellLine != "KOLF2.1J" || sum.ThawDate != "2026-05-20" {
		t.Fatalf("unexpected origin fields: %+v", sum)
	}
	if sum.LastEvent != EventSplit || sum.DaysSinceThaw != 12 {
		t.Fatalf("unexpected latest fields: %+v", sum)
	}
	if sum.Status != StatusActive {
		t.Fatalf("expected Active, got %s", sum.Status)
	}

	options, err := svc.LineageOptions(ctx, 30)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if len(options) != 1 || !strings.Contains(options[0].Label, "KOLF2.1J") {
		t.Fatalf("unexpected options: %+v", options)
	}
}

func TestLatestStatusSuggestsNextPassage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	createEvent(t, svc, Event{
		Date: "2026-05-01", CellLine: "WTC-11", CellType: "iPSC",
		EventType: EventThawing, Passage: intPtr(4), Vessel: "T25",
		Medium: "mTeSR", Location: "Inc 1", Operator: "John Smith",
		ThawID: "TH-L", CreatedBy: "u",
	})
	createEvent(t, svc, Event{
		Date: "2026-05-04", EventType: EventSplit, Passage: intPtr(5),
		Vessel: "6-well", Medium: "mTeSR", Location: "Inc 1",
		Operator: "John Smith", ThawID: "TH-L", CreatedBy: "u",
	})

	defaults, err := svc.LatestStatus(ctx, "TH-L")
	if err != nil {
		t.Fatalf("latest status: %v", err)
	}
	if defaults.CellLine != "WTC-11" || defaults.CellType != "iPSC" {
		t.Fatalf("unexpected origin defaults: %+v", defaults)
	}
	if defaults.Vessel != "6-well" || defaults.Medium != "mTeSR" {
		t.Fatalf("unexpected state defaults: %+v", defaults)
	}
	if defaults.SuggestedPassage == nil || *defaults.SuggestedPassage != 6 {
		t.Fatalf("expected suggested passage 6, got %+v", defaults.SuggestedPassage)
	}

	// After a non-split event the suggestion carries the current passage.
	createEvent(t, svc, Event{
		Date: "2026-05-05", EventType: EventObservation, Passage: intPtr(5),
		ThawID: "TH-L", CreatedBy: "u",
	})
	defaults, err = svc.LatestStatus(ctx, "TH-L")
	if err != nil {
		t.Fatalf("latest status: %v", err)
	}
	if defaults.SuggestedPassage == nil || *defaults.SuggestedPassage != 5 {
		t.Fatalf("expected suggested passage 5, got %+v", defaults.SuggestedPassage)
	}
}

func TestServiceObservability(t *testing.T) {
	rec := NewExpvarMetricsRecorder("test_service_metrics")
	svc, _ := newTestService(t, WithMetricsRecorder(rec))
	ctx := context.Background()

	createEvent(t, svc, Event{Date: "2026-05-01", EventType: EventObservation, CreatedBy: "u"})
	if _, err := svc.Reconstruct(ctx, "TH-ANY"); err != nil {
		t.Fatalf("reconstruct: %v", err)
	}

	snap := rec.Snapshot()
	if snap.Results["create_event"]["success"] != 1 {
		t.Fatalf("expected one create observation, got %+v", snap.Results)
	}
	if snap.Results["reconstruct_lineage"]["success"] != 1 {
		t.Fatalf("expected one reconstruct observation, got %+v", snap.Results)
	}
}
