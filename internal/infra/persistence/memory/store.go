// Package memory provides the in-memory event store used by tests and
// ephemeral deployments. It is the reference implementation of the store
// contract: the SQL drivers must match its ordering and patch semantics.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"vialtrack/pkg/domain"
)

// Store keeps events and reference vocabularies in process memory.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	events map[int64]domain.Event
	refs   map[domain.RefKind]map[string]struct{}
}

var (
	_ domain.EventStore     = (*Store)(nil)
	_ domain.ReferenceStore = (*Store)(nil)
)

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	refs := make(map[domain.RefKind]map[string]struct{})
	for _, kind := range domain.RefKinds() {
		refs[kind] = make(map[string]struct{})
	}
	return &Store{
		nextID: 1,
		events: make(map[int64]domain.Event),
		refs:   refs,
	}
}

// Insert validates and stores a new event, assigning the next id.
func (s *Store) Insert(_ context.Context, event domain.Event) (int64, error) {
	if err := event.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	event.ID = s.nextID
	s.nextID++
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	s.events[event.ID] = event
	return event.ID, nil
}

// Update applies the patch to a stored event. False when the id is absent.
func (s *Store) Update(_ context.Context, id int64, patch domain.EventPatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[id]
	if !ok {
		return false, nil
	}
	applyPatch(&event, patch)
	s.events[id] = event
	return true, nil
}

// Delete removes an event row. False when the id is absent.
func (s *Store) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return false, nil
	}
	delete(s.events, id)
	return true, nil
}

// GetByID fetches one event.
func (s *Store) GetByID(_ context.Context, id int64) (domain.Event, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	return event, ok, nil
}

// QueryByLineageKey returns the key's events ordered by (date, id).
func (s *Store) QueryByLineageKey(_ context.Context, key string) ([]domain.Event, error) {
	if key == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Event
	for _, event := range s.events {
		if event.ThawID == key {
			out = append(out, event)
		}
	}
	sortEvents(out)
	return out, nil
}

// ListLineageKeysWithEventType returns distinct non-empty keys owning at least
// one event of the type, ascending.
func (s *Store) ListLineageKeysWithEventType(_ context.Context, eventType domain.EventType) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, event := range s.events {
		if event.EventType == eventType && event.ThawID != "" {
			seen[event.ThawID] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Query filters events and returns them in (date, id) order.
func (s *Store) Query(_ context.Context, filter domain.Filter) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Event
	for _, event := range s.events {
		if matches(event, filter) {
			out = append(out, event)
		}
	}
	sortEvents(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// CountSameDayThaws counts Thawing events on the day whose thaw id has the
// prefix.
func (s *Store) CountSameDayThaws(_ context.Context, day time.Time, prefix string) (int, error) {
	iso := day.Format(domain.DateLayout)
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, event := range s.events {
		if event.EventType != domain.EventThawing || event.Date != iso {
			continue
		}
		if prefix != "" && !strings.HasPrefix(event.ThawID, prefix) {
			continue
		}
		count++
	}
	return count, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// ListValues returns a vocabulary sorted case-insensitively.
func (s *Store) ListValues(_ context.Context, kind domain.RefKind) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.refs[kind]
	if !ok {
		return nil, domain.ValidationError{Field: "kind", Reason: "unsupported"}
	}
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		return strings.ToLower(values[i]) < strings.ToLower(values[j])
	})
	return values, nil
}

// AddValue registers a value; adding an existing value is a no-op.
func (s *Store) AddValue(_ context.Context, kind domain.RefKind, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ValidationError{Field: string(kind), Reason: "must be non-empty"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.refs[kind]
	if !ok {
		return domain.ValidationError{Field: "kind", Reason: "unsupported"}
	}
	set[name] = struct{}{}
	return nil
}

// RenameValue replaces oldName with newName in place. A missing oldName is a
// no-op, and renaming a value to itself leaves it untouched.
func (s *Store) RenameValue(_ context.Context, kind domain.RefKind, oldName, newName string) error {
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return domain.ValidationError{Field: string(kind), Reason: "must be non-empty"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.refs[kind]
	if !ok {
		return domain.ValidationError{Field: "kind", Reason: "unsupported"}
	}
	if _, exists := set[oldName]; !exists || oldName == newName {
		return nil
	}
	delete(set, oldName)
	set[newName] = struct{}{}
	return nil
}

// DeleteValue removes a value from a vocabulary.
func (s *Store) DeleteValue(_ context.Context, kind domain.RefKind, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.refs[kind]
	if !ok {
		return domain.ValidationError{Field: "kind", Reason: "unsupported"}
	}
	delete(set, name)
	return nil
}

func applyPatch(event *domain.Event, patch domain.EventPatch) {
	if patch.Date != nil {
		event.Date = *patch.Date
	}
	if patch.CellLine != nil {
		event.CellLine = *patch.CellLine
	}
	if patch.EventType != nil {
		event.EventType = *patch.EventType
	}
	if patch.Passage != nil {
		passage := *patch.Passage
		event.Passage = &passage
	}
	if patch.Vessel != nil {
		event.Vessel = *patch.Vessel
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.Medium != nil {
		event.Medium = *patch.Medium
	}
	if patch.CellType != nil {
		event.CellType = *patch.CellType
	}
	if patch.Notes != nil {
		event.Notes = *patch.Notes
	}
	if patch.Operator != nil {
		event.Operator = *patch.Operator
	}
	if patch.ThawID != nil {
		event.ThawID = *patch.ThawID
	}
	if patch.LinkedThawID != nil {
		event.LinkedThawID = *patch.LinkedThawID
	}
	if patch.CryoVialPosition != nil {
		event.CryoVialPosition = *patch.CryoVialPosition
	}
	if patch.AttachmentKey != nil {
		event.AttachmentKey = *patch.AttachmentKey
	}
	if patch.AssignedTo != nil {
		event.AssignedTo = *patch.AssignedTo
	}
	if patch.NextActionDate != nil {
		event.NextActionDate = *patch.NextActionDate
	}
	if patch.Volume != nil {
		volume := *patch.Volume
		event.Volume = &volume
	}
}

func matches(event domain.Event, filter domain.Filter) bool {
	if filter.CreatedBy != "" && event.CreatedBy != filter.CreatedBy {
		return false
	}
	if filter.EventType != "" && event.EventType != filter.EventType {
		return false
	}
	if filter.ThawID != "" && event.ThawID != filter.ThawID {
		return false
	}
	if filter.Operator != "" && event.Operator != filter.Operator {
		return false
	}
	if filter.StartDate != "" && event.Date < filter.StartDate {
		return false
	}
	if filter.EndDate != "" && event.Date > filter.EndDate {
		return false
	}
	if filter.CellLineContains != "" &&
		!strings.Contains(strings.ToLower(event.CellLine), strings.ToLower(filter.CellLineContains)) {
		return false
	}
	return true
}

// sortEvents orders by (date ascending, id ascending). ISO day strings sort
// lexically; id is the insertion-order tiebreak for same-day events.
func sortEvents(events []domain.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].ID < events[j].ID
	})
}
