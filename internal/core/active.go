package core

import (
	"context"
	"sort"
	"time"
)

// LineageSummary is the dashboard row for one lineage.
type LineageSummary struct {
	ThawID         string               `json:"thaw_id"`
	CellLine       string               `json:"cell_line"`
	ThawDate       string               `json:"thaw_date"`
	CurrentPassage *int                 `json:"current_passage,omitempty"`
	LastEvent      EventType     `json:"last_event"`
	LastDate       string               `json:"last_date"`
	Vessel         string               `json:"vessel"`
	Location       string               `json:"location"`
	DaysSinceThaw  int                  `json:"days_since_thaw"`
	Status         LineageStatus `json:"status"`
}

// LineageOption is a picker entry for forms that ask which lineage a new
// event belongs to.
type LineageOption struct {
	ThawID   string `json:"thaw_id"`
	CellLine string `json:"cell_line"`
	ThawDate string `json:"thaw_date"`
	Label    string `json:"label"`
}

// EntryDefaults prefills an event form from the lineage's latest state.
type EntryDefaults struct {
	CellLine         string `json:"cell_line"`
	CellType         string `json:"cell_type"`
	Vessel           string `json:"vessel"`
	Location         string `json:"location"`
	Medium           string `json:"medium"`
	Operator         string `json:"operator"`
	SuggestedPassage *int   `json:"suggested_passage,omitempty"`
}

// ActiveVials returns the reconstructed views of every lineage considered in
// active culture, sorted by lineage key. A lineage needs at least one thaw to
// qualify, and is excluded only when its most recent cryopreservation is
// dated after the recency cutoff. A lineage frozen long ago but never
// re-thawn still counts as active; callers that want stricter semantics
// should inspect the lineage status instead.
func (s *Service) ActiveVials(ctx context.Context, recencyDays int) ([]LineageView, error) {
	var active []LineageView
	err := s.instrument(ctx, "active_vials", func(ctx context.Context) error {
		keys, err := s.store.ListLineageKeysWithEventType(ctx, EventThawing)
		if err != nil {
			return err
		}
		sort.Strings(keys)
		now := s.clock()
		cutoff := now.AddDate(0, 0, -recencyDays)
		for _, key := range keys {
			events, err := s.store.QueryByLineageKey(ctx, key)
			if err != nil {
				return err
			}
			if recentlyCryopreserved(events, cutoff) {
				continue
			}
			view := BuildLineageView(key, events)
			s.warnMalformedDates(view)
			active = append(active, view)
		}
		return nil
	})
	return active, err
}

// recentlyCryopreserved reports whether the lineage's latest cryopreservation
// falls after the cutoff. Future-dated cryopreservations count: operators
// enter freezes ahead of time and such a lineage is already spoken for.
func recentlyCryopreserved(events []Event, cutoff time.Time) bool {
	var latest time.Time
	var seen bool
	for _, ev := range events {
		if ev.EventType != EventCryopreservation {
			continue
		}
		day, ok := ev.ParsedDate()
		if !ok {
			continue
		}
		if !seen || day.After(latest) {
			latest = day
			seen = true
		}
	}
	if !seen {
		return false
	}
	return latest.After(cutoff)
}

// LineageSummaries builds dashboard rows for every active lineage.
func (s *Service) LineageSummaries(ctx context.Context, recencyDays int) ([]LineageSummary, error) {
	var summaries []LineageSummary
	err := s.instrument(ctx, "lineage_summaries", func(ctx context.Context) error {
		views, err := s.ActiveVials(ctx, recencyDays)
		if err != nil {
			return err
		}
		now := s.clock()
		for _, view := range views {
			if view.Empty() {
				continue
			}
			summary := LineageSummary{
				ThawID:         view.ThawID,
				CurrentPassage: view.CurrentPassage,
				Vessel:         view.CurrentVessel,
				Location:       view.CurrentLocation,
				DaysSinceThaw:  view.DaysSinceThaw(now),
				Status:         view.Status(now),
			}
			if view.Origin != nil {
				summary.CellLine = view.Origin.CellLine
				summary.ThawDate = view.Origin.Date
			}
			if view.Latest != nil {
				summary.LastEvent = view.Latest.EventType
				summary.LastDate = view.Latest.Date
			}
			summaries = append(summaries, summary)
		}
		return nil
	})
	return summaries, err
}

// LineageOptions lists active lineages as form picker entries.
func (s *Service) LineageOptions(ctx context.Context, recencyDays int) ([]LineageOption, error) {
	summaries, err := s.LineageSummaries(ctx, recencyDays)
	if err != nil {
		return nil, err
	}
	options := make([]LineageOption, 0, len(summaries))
	for _, sum := range summaries {
		label := sum.ThawID
		if sum.CellLine != "" {
			label += " (" + sum.CellLine
			if sum.ThawDate != "" {
				label += ", thawed " + sum.ThawDate
			}
			label += ")"
		}
		options = append(options, LineageOption{
			ThawID:   sum.ThawID,
			CellLine: sum.CellLine,
			ThawDate: sum.ThawDate,
			Label:    label,
		})
	}
	return options, nil
}

// LatestStatus prefills a new event from the lineage's current state. The
// suggested passage is the current one bumped by one when the previous event
// was a split, otherwise carried as is.
func (s *Service) LatestStatus(ctx context.Context, thawID string) (EntryDefaults, error) {
	view, err := s.Reconstruct(ctx, thawID)
	if err != nil || view.Empty() {
		return EntryDefaults{}, err
	}
	defaults := EntryDefaults{
		Vessel:   view.CurrentVessel,
		Location: view.CurrentLocation,
		Medium:   view.CurrentMedium,
	}
	if view.Origin != nil {
		defaults.CellLine = view.Origin.CellLine
		defaults.CellType = view.Origin.CellType
	}
	if view.Latest != nil {
		defaults.Operator = view.Latest.Operator
	}
	if view.CurrentPassage != nil {
		suggested := *view.CurrentPassage
		if view.Latest != nil && view.Latest.EventType == EventSplit {
			suggested++
		}
		defaults.SuggestedPassage = &suggested
	}
	return defaults, nil
}
