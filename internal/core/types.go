package core

import "vialtrack/pkg/domain"

type (
	Event         = domain.Event
	EventPatch    = domain.EventPatch
	EventType     = domain.EventType
	Filter        = domain.Filter
	LineageView   = domain.LineageView
	AnalyticsView = domain.AnalyticsView
	PassagePoint  = domain.PassagePoint
	Alert         = domain.Alert
	AlertRule     = domain.AlertRule
	AlertEngine   = domain.AlertEngine
	Severity      = domain.Severity
	LineageStatus = domain.LineageStatus
	EventStore    = domain.EventStore
	RefKind       = domain.RefKind
)

const (
	EventThawing          = domain.EventThawing
	EventSplit            = domain.EventSplit
	EventMediaChange      = domain.EventMediaChange
	EventObservation      = domain.EventObservation
	EventCryopreservation = domain.EventCryopreservation
	EventOther            = domain.EventOther
)

const (
	SeverityCritical = domain.SeverityCritical
	SeverityWarning  = domain.SeverityWarning
	SeverityInfo     = domain.SeverityInfo
)

const (
	StatusActive        = domain.StatusActive
	StatusAged          = domain.StatusAged
	StatusOld           = domain.StatusOld
	StatusCryopreserved = domain.StatusCryopreserved
)
