package core

// BuildLineageView derives a lineage view from the key's events. The slice
// must already be in (date ascending, id ascending) order, which is what the
// store contract guarantees; the builder does not re-sort.
//
// Origin is the earliest Thawing event. The source data does not prevent
// duplicate Thawing rows, so the earliest wins and later ones stay in the
// event list untouched. Latest is simply the last event in order; its fields
// become the view's current state.
func BuildLineageView(key string, events []Event) LineageView {
	if len(events) == 0 {
		return LineageView{}
	}
	view := LineageView{
		ThawID:      key,
		Events:      events,
		TotalEvents: len(events),
	}
	for i := range events {
		event := &events[i]
		if view.Origin == nil && event.EventType == EventThawing {
			view.Origin = event
		}
		if event.Passage != nil {
			view.PassageProgression = append(view.PassageProgression, PassagePoint{
				Date:      event.Date,
				Passage:   *event.Passage,
				EventType: event.EventType,
				Vessel:    event.Vessel,
				Medium:    event.Medium,
			})
		}
	}
	latest := &events[len(events)-1]
	view.Latest = latest
	view.CurrentPassage = latest.Passage
	view.CurrentVessel = latest.Vessel
	view.CurrentMedium = latest.Medium
	view.CurrentLocation = latest.Location
	view.CultureDays = cultureDays(view.Origin, latest)
	return view
}

// cultureDays computes the whole-day span between origin and latest logical
// dates. Missing origin or a malformed date on either end degrades to zero.
func cultureDays(origin, latest *Event) int {
	if origin == nil || latest == nil {
		return 0
	}
	start, ok := origin.ParsedDate()
	if !ok {
		return 0
	}
	end, ok := latest.ParsedDate()
	if !ok {
		return 0
	}
	days := int(end.Sub(start).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
