package core

import "sort"

// BuildAnalytics computes the secondary statistics for a reconstructed
// lineage. An empty view yields a zero AnalyticsView; every collection in a
// non-empty result is freshly allocated so repeated calls are independent.
func BuildAnalytics(view LineageView) AnalyticsView {
	if view.Empty() {
		return AnalyticsView{}
	}
	stats := AnalyticsView{
		ThawID:         view.ThawID,
		EventFrequency: make(map[EventType]int, 4),
	}

	var splits []Event
	mediaSet := make(map[string]struct{})
	vesselSet := make(map[string]struct{})
	locationSet := make(map[string]struct{})
	for _, event := range view.Events {
		stats.EventFrequency[event.EventType]++
		if event.EventType == EventSplit {
			splits = append(splits, event)
		}
		if event.Medium != "" {
			mediaSet[event.Medium] = struct{}{}
		}
		if event.Vessel != "" {
			vesselSet[event.Vessel] = struct{}{}
		}
		if event.Location != "" {
			locationSet[event.Location] = struct{}{}
		}
	}

	// Day gaps between consecutive splits, skipping pairs whose dates do not
	// parse rather than failing the whole computation.
	for i := 1; i < len(splits); i++ {
		prev, ok := splits[i-1].ParsedDate()
		if !ok {
			continue
		}
		curr, ok := splits[i].ParsedDate()
		if !ok {
			continue
		}
		stats.PassageIntervals = append(stats.PassageIntervals, int(curr.Sub(prev).Hours()/24))
	}
	if len(stats.PassageIntervals) > 0 {
		sum := 0
		for _, interval := range stats.PassageIntervals {
			sum += interval
		}
		stats.AvgPassageInterval = float64(sum) / float64(len(stats.PassageIntervals))
	}

	stats.MediaUsed = sortedKeys(mediaSet)
	stats.VesselsUsed = sortedKeys(vesselSet)
	stats.LocationsUsed = sortedKeys(locationSet)
	stats.TotalSplits = stats.EventFrequency[EventSplit]
	stats.TotalObservations = stats.EventFrequency[EventObservation]
	stats.MediaChanges = stats.EventFrequency[EventMediaChange]
	return stats
}

// sortedKeys flattens a string set in ascending order so distinct-condition
// lists are deterministic across calls.
func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
