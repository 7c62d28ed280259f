package core

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vialtrack/internal/attach"
	"vialtrack/pkg/domain"
)

// Service is the application core. It owns event persistence, reference
// vocabularies, attachments, and the derivation layer that turns the flat
// event log into lineage views, analytics, and alerts.
type Service struct {
	store       EventStore
	refs        domain.ReferenceStore
	attachments attach.Store
	logger      *zap.Logger
	clock       func() time.Time
	thresholds  Thresholds
	alerts      *AlertEngine
	metrics     MetricsRecorder
	tracer      Tracer
}

// ServiceOption customises Service construction.
type ServiceOption func(*Service)

// WithReferenceStore attaches a reference vocabulary store.
func WithReferenceStore(refs domain.ReferenceStore) ServiceOption {
	return func(s *Service) { s.refs = refs }
}

// WithAttachmentStore attaches a blob store for event attachments.
func WithAttachmentStore(store attach.Store) ServiceOption {
	return func(s *Service) { s.attachments = store }
}

// WithLogger sets the service logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the wall clock, primarily for tests.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithThresholds replaces the default alerting thresholds. The alert engine
// is rebuilt with the new values.
func WithThresholds(t Thresholds) ServiceOption {
	return func(s *Service) {
		s.thresholds = t
		s.alerts = NewDefaultAlertEngine(t)
	}
}

// WithAlertEngine replaces the rule set entirely.
func WithAlertEngine(engine *AlertEngine) ServiceOption {
	return func(s *Service) {
		if engine != nil {
			s.alerts = engine
		}
	}
}

// WithMetricsRecorder sets the operation metrics sink.
func WithMetricsRecorder(rec MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithTracer sets the operation tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewService builds a Service around the given event store.
func NewService(store EventStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:      store,
		logger:     zap.NewNop(),
		clock:      time.Now,
		thresholds: DefaultThresholds(),
		metrics:    noopMetrics{},
		tracer:     noopTracer{},
	}
	s.alerts = NewDefaultAlertEngine(s.thresholds)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}

func (s *Service) instrument(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	err := fn(ctx)
	s.metrics.ObserveOperation(op, time.Since(start), err)
	span.End(err)
	return err
}

// CreateEvent validates and persists a new culture event. When the event is
// a thaw without a thaw id, one is generated. New vocabulary values seen on
// the event are registered best-effort.
func (s *Service) CreateEvent(ctx context.Context, event Event) (Event, error) {
	var created Event
	err := s.instrument(ctx, "create_event", func(ctx context.Context) error {
		if err := event.Validate(); err != nil {
			return err
		}
		if event.EventType == EventThawing && event.ThawID == "" {
			day, ok := event.ParsedDate()
			if !ok {
				return domain.ValidationError{Field: "date", Reason: "unparseable date"}
			}
			id, err := GenerateThawID(ctx, s.store, day, event.Operator, event.CellType)
			if err != nil {
				return err
			}
			event.ThawID = id
		}
		if event.CreatedAt.IsZero() {
			event.CreatedAt = s.clock().UTC()
		}
		id, err := s.store.Insert(ctx, event)
		if err != nil {
			return err
		}
		event.ID = id
		s.registerVocabulary(ctx, event)
		created = event
		return nil
	})
	return created, err
}

// registerVocabulary adds any new reference values carried by the event.
// Failures are logged and otherwise ignored.
func (s *Service) registerVocabulary(ctx context.Context, event Event) {
	if s.refs == nil {
		return
	}
	pairs := []struct {
		kind  RefKind
		value string
	}{
		{domain.RefCellLine, event.CellLine},
		{domain.RefEventType, string(event.EventType)},
		{domain.RefVessel, event.Vessel},
		{domain.RefLocation, event.Location},
		{domain.RefCellType, event.CellType},
		{domain.RefMedium, event.Medium},
	}
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		if err := s.refs.AddValue(ctx, p.kind, p.value); err != nil {
			s.logger.Warn("vocabulary registration failed",
				zap.String("kind", string(p.kind)),
				zap.String("value", p.value),
				zap.Error(err))
		}
	}
}

// UpdateEvent applies a partial update. It reports false when the event does
// not exist.
func (s *Service) UpdateEvent(ctx context.Context, id int64, patch EventPatch) (bool, error) {
	var updated bool
	err := s.instrument(ctx, "update_event", func(ctx context.Context) error {
		if patch.Date != nil {
			if _, parseErr := time.Parse(domain.DateLayout, *patch.Date); parseErr != nil {
				return domain.ValidationError{Field: "date", Reason: "unparseable date"}
			}
		}
		ok, err := s.store.Update(ctx, id, patch)
		updated = ok
		return err
	})
	return updated, err
}

// DeleteEvent removes an event and, best effort, its attachment blob.
func (s *Service) DeleteEvent(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.instrument(ctx, "delete_event", func(ctx context.Context) error {
		event, found, err := s.store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		ok, err := s.store.Delete(ctx, id)
		if err != nil {
			return err
		}
		deleted = ok
		if ok && event.AttachmentKey != "" && s.attachments != nil {
			if _, attErr := s.attachments.Delete(ctx, event.AttachmentKey); attErr != nil {
				s.logger.Warn("attachment cleanup failed",
					zap.Int64("event_id", id),
					zap.String("key", event.AttachmentKey),
					zap.Error(attErr))
			}
		}
		return nil
	})
	return deleted, err
}

// GetEvent fetches a single event by id.
func (s *Service) GetEvent(ctx context.Context, id int64) (Event, bool, error) {
	var (
		event Event
		found bool
	)
	err := s.instrument(ctx, "get_event", func(ctx context.Context) error {
		var err error
		event, found, err = s.store.GetByID(ctx, id)
		return err
	})
	return event, found, err
}

// Events lists events matching the filter.
func (s *Service) Events(ctx context.Context, filter Filter) ([]Event, error) {
	var events []Event
	err := s.instrument(ctx, "list_events", func(ctx context.Context) error {
		var err error
		events, err = s.store.Query(ctx, filter)
		return err
	})
	return events, err
}

// Reconstruct rebuilds the lineage view for a thaw id. An unknown id yields
// an empty view, not an error.
func (s *Service) Reconstruct(ctx context.Context, thawID string) (LineageView, error) {
	var view LineageView
	err := s.instrument(ctx, "reconstruct_lineage", func(ctx context.Context) error {
		events, err := s.store.QueryByLineageKey(ctx, thawID)
		if err != nil {
			return err
		}
		view = BuildLineageView(thawID, events)
		s.warnMalformedDates(view)
		return nil
	})
	return view, err
}

func (s *Service) warnMalformedDates(view LineageView) {
	for _, ev := range view.Events {
		if _, ok := ev.ParsedDate(); !ok {
			s.logger.Warn("malformed event date",
				zap.Int64("event_id", ev.ID),
				zap.String("thaw_id", view.ThawID),
				zap.String("date", ev.Date))
		}
	}
}

// Analyze computes passage and usage analytics for a lineage.
func (s *Service) Analyze(ctx context.Context, thawID string) (AnalyticsView, error) {
	var stats AnalyticsView
	err := s.instrument(ctx, "analyze_lineage", func(ctx context.Context) error {
		view, err := s.Reconstruct(ctx, thawID)
		if err != nil {
			return err
		}
		stats = BuildAnalytics(view)
		return nil
	})
	return stats, err
}

// Alerts evaluates the rule set against a lineage. An unknown id yields an
// empty slice.
func (s *Service) Alerts(ctx context.Context, thawID string) ([]Alert, error) {
	var alerts []Alert
	err := s.instrument(ctx, "evaluate_alerts", func(ctx context.Context) error {
		view, err := s.Reconstruct(ctx, thawID)
		if err != nil {
			return err
		}
		if view.Empty() {
			return nil
		}
		alerts = s.alerts.Evaluate(view, BuildAnalytics(view))
		return nil
	})
	return alerts, err
}

// AttachFile stores a blob and binds its key to the event. The generated key
// keeps the original extension so downstream viewers can infer the type.
func (s *Service) AttachFile(ctx context.Context, eventID int64, filename, contentType string, body io.Reader) (string, error) {
	if s.attachments == nil {
		return "", attach.ErrUnsupported
	}
	var key string
	err := s.instrument(ctx, "attach_file", func(ctx context.Context) error {
		_, found, err := s.store.GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		if !found {
			return domain.ValidationError{Field: "event_id", Reason: "unknown event"}
		}
		key = fmt.Sprintf("events/%d/%s%s", eventID, uuid.NewString(), path.Ext(filename))
		if _, err := s.attachments.Put(ctx, key, body, attach.PutOptions{ContentType: contentType}); err != nil {
			return err
		}
		ok, err := s.store.Update(ctx, eventID, EventPatch{AttachmentKey: &key})
		if err != nil {
			return err
		}
		if !ok {
			return domain.ValidationError{Field: "event_id", Reason: "unknown event"}
		}
		return nil
	})
	return key, err
}

// AttachmentURL resolves a retrieval URL for an event's attachment.
func (s *Service) AttachmentURL(ctx context.Context, eventID int64, expiry time.Duration) (string, error) {
	if s.attachments == nil {
		return "", attach.ErrUnsupported
	}
	var url string
	err := s.instrument(ctx, "attachment_url", func(ctx context.Context) error {
		event, found, err := s.store.GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		if !found || event.AttachmentKey == "" {
			return domain.ValidationError{Field: "event_id", Reason: "no attachment"}
		}
		url, err = s.attachments.URL(ctx, event.AttachmentKey, expiry)
		return err
	})
	return url, err
}

// ReferenceValues lists the vocabulary for a reference kind.
func (s *Service) ReferenceValues(ctx context.Context, kind RefKind) ([]string, error) {
	if s.refs == nil {
		return nil, nil
	}
	return s.refs.ListValues(ctx, kind)
}

// AddReferenceValue registers a vocabulary value.
func (s *Service) AddReferenceValue(ctx context.Context, kind RefKind, value string) error {
	if s.refs == nil {
		return fmt.Errorf("reference store not configured")
	}
	if value == "" {
		return domain.ValidationError{Field: string(kind), Reason: "empty value"}
	}
	return s.refs.AddValue(ctx, kind, value)
}

// RenameReferenceValue renames a vocabulary value.
func (s *Service) RenameReferenceValue(ctx context.Context, kind RefKind, from, to string) error {
	if s.refs == nil {
		return fmt.Errorf("reference store not configured")
	}
	if to == "" {
		return domain.ValidationError{Field: string(kind), Reason: "empty value"}
	}
	return s.refs.RenameValue(ctx, kind, from, to)
}

// DeleteReferenceValue removes a vocabulary value.
func (s *Service) DeleteReferenceValue(ctx context.Context, kind RefKind, value string) error {
	if s.refs == nil {
		return fmt.Errorf("reference store not configured")
	}
	return s.refs.DeleteValue(ctx, kind, value)
}
