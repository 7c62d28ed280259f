// Package sqlite provides the default event store: a single flat events table
// in a file-backed SQLite database. WAL journaling keeps concurrent readers
// from blocking on a writer; every write is one autocommitted statement.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	sqldocs "vialtrack/docs/schema/sql"
	"vialtrack/pkg/domain"
)

// Store persists events and reference vocabularies in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var (
	_ domain.EventStore     = (*Store)(nil)
	_ domain.ReferenceStore = (*Store)(nil)
)

// NewStore opens (creating if needed) the database at path and applies the
// schema. An empty path defaults to ./vialtrack.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "vialtrack.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle for integration tests.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	for _, stmt := range sqldocs.Statements(sqldocs.SQLite) {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

const eventColumns = `id, date, cell_line, event_type, passage, vessel, location, medium,
	cell_type, notes, operator, thaw_id, linked_thaw_id, cryo_vial_position,
	attachment_key, assigned_to, next_action_date, volume, experiment_type,
	experiment_stage, experimental_conditions, protocol_reference,
	outcome_status, success_metrics, created_by, created_at`

// Insert validates and stores a new event.
func (s *Store) Insert(ctx context.Context, event domain.Event) (int64, error) {
	if err := event.Validate(); err != nil {
		return 0, err
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO events (
		date, cell_line, event_type, passage, vessel, location, medium,
		cell_type, notes, operator, thaw_id, linked_thaw_id, cryo_vial_position,
		attachment_key, assigned_to, next_action_date, volume, experiment_type,
		experiment_stage, experimental_conditions, protocol_reference,
		outcome_status, success_metrics, created_by, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.Date, nullStr(event.CellLine), string(event.EventType), nullInt(event.Passage),
		nullStr(event.Vessel), nullStr(event.Location), nullStr(event.Medium),
		nullStr(event.CellType), nullStr(event.Notes), nullStr(event.Operator),
		nullStr(event.ThawID), nullStr(event.LinkedThawID), nullStr(event.CryoVialPosition),
		nullStr(event.AttachmentKey), nullStr(event.AssignedTo), nullStr(event.NextActionDate),
		nullFloat(event.Volume), nullStr(event.ExperimentType), nullStr(event.ExperimentStage),
		nullStr(event.ExperimentalConditions), nullStr(event.ProtocolReference),
		nullStr(event.OutcomeStatus), nullStr(event.SuccessMetrics),
		event.CreatedBy, createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return 0, domain.StoreError{Op: "insert", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.StoreError{Op: "insert", Err: err}
	}
	return id, nil
}

// Update applies a field-level patch, touching only the provided columns.
func (s *Store) Update(ctx context.Context, id int64, patch domain.EventPatch) (bool, error) {
	sets, args := patchAssignments(patch)
	if len(sets) == 0 {
		return false, nil
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE events SET %s WHERE id = ?`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return false, domain.StoreError{Op: "update", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.StoreError{Op: "update", Err: err}
	}
	return n > 0, nil
}

// Delete removes an event row.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return false, domain.StoreError{Op: "delete", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.StoreError{Op: "delete", Err: err}
	}
	return n > 0, nil
}

// GetByID fetches one event; ok is false when the id is absent.
func (s *Store) GetByID(ctx context.Context, id int64) (domain.Event, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, false, nil
	}
	if err != nil {
		return domain.Event{}, false, domain.StoreError{Op: "get", Err: err}
	}
	return event, true, nil
}

// QueryByLineageKey returns the key's events ordered by (date, id).
func (s *Store) QueryByLineageKey(ctx context.Context, key string) ([]domain.Event, error) {
	if key == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE thaw_id = ? ORDER BY date ASC, id ASC`, key)
	if err != nil {
		return nil, domain.StoreError{Op: "query lineage", Err: err}
	}
	return collectEvents(rows)
}

// ListLineageKeysWithEventType returns distinct non-empty keys owning at least
// one event of the given type.
func (s *Store) ListLineageKeysWithEventType(ctx context.Context, eventType domain.EventType) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT thaw_id FROM events
		WHERE event_type = ? AND thaw_id IS NOT NULL AND thaw_id != ''
		ORDER BY thaw_id ASC`, string(eventType))
	if err != nil {
		return nil, domain.StoreError{Op: "list lineage keys", Err: err}
	}
	defer func() { _ = rows.Close() }()
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, domain.StoreError{Op: "list lineage keys", Err: err}
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Query returns events matching the filter in (date, id) order.
func (s *Store) Query(ctx context.Context, filter domain.Filter) ([]domain.Event, error) {
	where, args := filterClauses(filter)
	sqlText := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		sqlText += ` WHERE ` + strings.Join(where, " AND ")
	}
	sqlText += ` ORDER BY date ASC, id ASC`
	if filter.Limit > 0 {
		sqlText += fmt.Sprintf(` LIMIT %d`, filter.Limit)
	}
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, domain.StoreError{Op: "query", Err: err}
	}
	return collectEvents(rows)
}

// CountSameDayThaws counts Thawing events on the day whose thaw id matches
// the prefix (all when empty).
func (s *Store) CountSameDayThaws(ctx context.Context, day time.Time, prefix string) (int, error) {
	iso := day.Format(domain.DateLayout)
	var row *sql.Row
	if prefix == "" {
		row = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM events WHERE event_type = ? AND date = ?`,
			string(domain.EventThawing), iso)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM events WHERE event_type = ? AND date = ? AND thaw_id LIKE ?`,
			string(domain.EventThawing), iso, prefix+"%")
	}
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, domain.StoreError{Op: "count thaws", Err: err}
	}
	return count, nil
}

// ListValues returns a vocabulary sorted case-insensitively.
func (s *Store) ListValues(ctx context.Context, kind domain.RefKind) ([]string, error) {
	table, err := refTableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT name FROM %s ORDER BY name COLLATE NOCASE ASC`, table))
	if err != nil {
		return nil, domain.StoreError{Op: "list " + table, Err: err}
	}
	defer func() { _ = rows.Close() }()
	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, domain.StoreError{Op: "list " + table, Err: err}
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// AddValue registers a value, ignoring duplicates.
func (s *Store) AddValue(ctx context.Context, kind domain.RefKind, name string) error {
	table, err := refTableFor(kind)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ValidationError{Field: string(kind), Reason: "must be non-empty"}
	}
	if _, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT OR IGNORE INTO %s (name, created_at) VALUES (?, ?)`, table),
		name, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return domain.StoreError{Op: "add " + table, Err: err}
	}
	return nil
}

// RenameValue rewrites the row in place. A missing oldName matches nothing,
// and renaming a value to itself leaves the row untouched.
func (s *Store) RenameValue(ctx context.Context, kind domain.RefKind, oldName, newName string) error {
	table, err := refTableFor(kind)
	if err != nil {
		return err
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return domain.ValidationError{Field: string(kind), Reason: "must be non-empty"}
	}
	if _, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET name = ? WHERE name = ?`, table),
		newName, strings.TrimSpace(oldName)); err != nil {
		return domain.StoreError{Op: "rename " + table, Err: err}
	}
	return nil
}

// DeleteValue removes a value from a vocabulary.
func (s *Store) DeleteValue(ctx context.Context, kind domain.RefKind, name string) error {
	table, err := refTableFor(kind)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE name = ?`, table), name); err != nil {
		return domain.StoreError{Op: "delete " + table, Err: err}
	}
	return nil
}

func refTableFor(kind domain.RefKind) (string, error) {
	switch kind {
	case domain.RefCellLine:
		return "cell_lines", nil
	case domain.RefEventType:
		return "event_types", nil
	case domain.RefVessel:
		return "vessels", nil
	case domain.RefLocation:
		return "locations", nil
	case domain.RefCellType:
		return "cell_types", nil
	case domain.RefMedium:
		return "culture_media", nil
	default:
		return "", domain.ValidationError{Field: "kind", Reason: "unsupported"}
	}
}

func filterClauses(filter domain.Filter) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.CreatedBy != "" {
		where = append(where, "created_by = ?")
		args = append(args, filter.CreatedBy)
	}
	if filter.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, string(filter.EventType))
	}
	if filter.ThawID != "" {
		where = append(where, "thaw_id = ?")
		args = append(args, filter.ThawID)
	}
	if filter.Operator != "" {
		where = append(where, "operator = ?")
		args = append(args, filter.Operator)
	}
	if filter.StartDate != "" {
		where = append(where, "date >= ?")
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		where = append(where, "date <= ?")
		args = append(args, filter.EndDate)
	}
	if filter.CellLineContains != "" {
		where = append(where, "LOWER(cell_line) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.CellLineContains)+"%")
	}
	return where, args
}

func patchAssignments(patch domain.EventPatch) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	set := func(col string, val any) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	if patch.Date != nil {
		set("date", *patch.Date)
	}
	if patch.CellLine != nil {
		set("cell_line", *patch.CellLine)
	}
	if patch.EventType != nil {
		set("event_type", string(*patch.EventType))
	}
	if patch.Passage != nil {
		set("passage", *patch.Passage)
	}
	if patch.Vessel != nil {
		set("vessel", *patch.Vessel)
	}
	if patch.Location != nil {
		set("location", *patch.Location)
	}
	if patch.Medium != nil {
		set("medium", *patch.Medium)
	}
	if patch.CellType != nil {
		set("cell_type", *patch.CellType)
	}
	if patch.Notes != nil {
		set("notes", *patch.Notes)
	}
	if patch.Operator != nil {
		set("operator", *patch.Operator)
	}
	if patch.ThawID != nil {
		set("thaw_id", *patch.ThawID)
	}
	if patch.LinkedThawID != nil {
		set("linked_thaw_id", *patch.LinkedThawID)
	}
	if patch.CryoVialPosition != nil {
		set("cryo_vial_position", *patch.CryoVialPosition)
	}
	if patch.AttachmentKey != nil {
		set("attachment_key", *patch.AttachmentKey)
	}
	if patch.AssignedTo != nil {
		set("assigned_to", *patch.AssignedTo)
	}
	if patch.NextActionDate != nil {
		set("next_action_date", *patch.NextActionDate)
	}
	if patch.Volume != nil {
		set("volume", *patch.Volume)
	}
	return sets, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (domain.Event, error) {
	var (
		event      domain.Event
		cellLine   sql.NullString
		eventType  string
		passage    sql.NullInt64
		vessel     sql.NullString
		location   sql.NullString
		medium     sql.NullString
		cellType   sql.NullString
		notes      sql.NullString
		operator   sql.NullString
		thawID     sql.NullString
		linkedThaw sql.NullString
		cryoPos    sql.NullString
		attachment sql.NullString
		assignedTo sql.NullString
		nextAction sql.NullString
		volume     sql.NullFloat64
		expType    sql.NullString
		expStage   sql.NullString
		expCond    sql.NullString
		protoRef   sql.NullString
		outcome    sql.NullString
		metrics    sql.NullString
		createdAt  string
	)
	if err := row.Scan(&event.ID, &event.Date, &cellLine, &eventType, &passage,
		&vessel, &location, &medium, &cellType, &notes, &operator,
		&thawID, &linkedThaw, &cryoPos, &attachment, &assignedTo, &nextAction,
		&volume, &expType, &expStage, &expCond, &protoRef, &outcome, &metrics,
		&event.CreatedBy, &createdAt); err != nil {
		return domain.Event{}, err
	}
	event.CellLine = cellLine.String
	event.EventType = domain.EventType(eventType)
	if passage.Valid {
		p := int(passage.Int64)
		event.Passage = &p
	}
	event.Vessel = vessel.String
	event.Location = location.String
	event.Medium = medium.String
	event.CellType = cellType.String
	event.Notes = notes.String
	event.Operator = operator.String
	event.ThawID = thawID.String
	event.LinkedThawID = linkedThaw.String
	event.CryoVialPosition = cryoPos.String
	event.AttachmentKey = attachment.String
	event.AssignedTo = assignedTo.String
	event.NextActionDate = nextAction.String
	if volume.Valid {
		v := volume.Float64
		event.Volume = &v
	}
	event.ExperimentType = expType.String
	event.ExperimentStage = expStage.String
	event.ExperimentalConditions = expCond.String
	event.ProtocolReference = protoRef.String
	event.OutcomeStatus = outcome.String
	event.SuccessMetrics = metrics.String
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		event.CreatedAt = ts
	}
	return event, nil
}

func collectEvents(rows *sql.Rows) ([]domain.Event, error) {
	defer func() { _ = rows.Close() }()
	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, domain.StoreError{Op: "scan", Err: err}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StoreError{Op: "scan", Err: err}
	}
	return events, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
