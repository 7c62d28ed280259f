// Package postgres provides a Postgres-backed event store with the same flat
// events table and ordering semantics as the sqlite driver. Intended for
// multi-user deployments that outgrow a single database file.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	sqldocs "vialtrack/docs/schema/sql"
	"vialtrack/pkg/domain"
)

const defaultDSN = "postgres://localhost/vialtrack?sslmode=disable"

// Store persists events and reference vocabularies in Postgres.
type Store struct {
	db *sql.DB
}

var (
	_ domain.EventStore     = (*Store)(nil)
	_ domain.ReferenceStore = (*Store)(nil)
)

// NewStore opens a connection using the DSN (falling back to a local default)
// and applies the schema.
func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStoreWithDB wraps an existing handle without pinging or migrating. Used
// by tests that substitute a mock connection.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for integration tests.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range sqldocs.Statements(sqldocs.Postgres) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
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

// Insert validates and stores a new event, returning the assigned id.
func (s *Store) Insert(ctx context.Context, event domain.Event) (int64, error) {
	if err := event.Validate(); err != nil {
		return 0, err
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `INSERT INTO events (
		date, cell_line, event_type, passage, vessel, location, medium,
		cell_type, notes, operator, thaw_id, linked_thaw_id, cryo_vial_position,
		attachment_key, assigned_to, next_action_date, volume, experiment_type,
		experiment_stage, experimental_conditions, protocol_reference,
		outcome_status, success_metrics, created_by, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21, $22, $23, $24, $25) RETURNING id`,
		event.Date, nullStr(event.CellLine), string(event.EventType), nullInt(event.Passage),
		nullStr(event.Vessel), nullStr(event.Location), nullStr(event.Medium),
		nullStr(event.CellType), nullStr(event.Notes), nullStr(event.Operator),
		nullStr(event.ThawID), nullStr(event.LinkedThawID), nullStr(event.CryoVialPosition),
		nullStr(event.AttachmentKey), nullStr(event.AssignedTo), nullStr(event.NextActionDate),
		nullFloat(event.Volume), nullStr(event.ExperimentType), nullStr(event.ExperimentStage),
		nullStr(event.ExperimentalConditions), nullStr(event.ProtocolReference),
		nullStr(event.OutcomeStatus), nullStr(event.SuccessMetrics),
		event.CreatedBy, createdAt).Scan(&id)
	if err != nil {
		return 0, domain.StoreError{Op: "insert", Err: err}
	}
	return id, nil
}

// Update applies a field-level patch, touching only the provided columns.
func (s *Store) Update(ctx context.Context, id int64, patch domain.EventPatch) (bool, error) {
	sets, args, argN := patchAssignments(patch)
	if len(sets) == 0 {
		return false, nil
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE events SET %s WHERE id = $%d`, strings.Join(sets, ", "), argN), args...)
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
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
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
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
		`SELECT `+eventColumns+` FROM events WHERE thaw_id = $1 ORDER BY date ASC, id ASC`, key)
	if err != nil {
		return nil, domain.StoreError{Op: "query lineage", Err: err}
	}
	return collectEvents(rows)
}

// ListLineageKeysWithEventType returns distinct non-empty keys owning at least
// one event of the given type.
func (s *Store) ListLineageKeysWithEventType(ctx context.Context, eventType domain.EventType) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT thaw_id FROM events
		WHERE event_type = $1 AND thaw_id IS NOT NULL AND thaw_id != ''
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
			`SELECT COUNT(*) FROM events WHERE event_type = $1 AND date = $2`,
			string(domain.EventThawing), iso)
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM events WHERE event_type = $1 AND date = $2 AND thaw_id LIKE $3`,
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
		fmt.Sprintf(`SELECT name FROM %s ORDER BY LOWER(name) ASC`, table))
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
		fmt.Sprintf(`INSERT INTO %s (name, created_at) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`, table),
		name, time.Now().UTC()); err != nil {
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
		fmt.Sprintf(`UPDATE %s SET name = $1 WHERE name = $2`, table),
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
		fmt.Sprintf(`DELETE FROM %s WHERE name = $1`, table), name); err != nil {
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
	argN := 1
	add := func(clause string, val any) {
		where = append(where, fmt.Sprintf(clause, argN))
		args = append(args, val)
		argN++
	}
	if filter.CreatedBy != "" {
		add("created_by = $%d", filter.CreatedBy)
	}
	if filter.EventType != "" {
		add("event_type = $%d", string(filter.EventType))
	}
	if filter.ThawID != "" {
		add("thaw_id = $%d", filter.ThawID)
	}
	if filter.Operator != "" {
		add("operator = $%d", filter.Operator)
	}
	if filter.StartDate != "" {
		add("date >= $%d", filter.StartDate)
	}
	if filter.EndDate != "" {
		add("date <= $%d", filter.EndDate)
	}
	if filter.CellLineContains != "" {
		add("LOWER(cell_line) LIKE $%d", "%"+strings.ToLower(filter.CellLineContains)+"%")
	}
	return where, args
}

func patchAssignments(patch domain.EventPatch) ([]string, []any, int) {
	var (
		sets []string
		args []any
	)
	argN := 1
	set := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argN))
		args = append(args, val)
		argN++
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
	return sets, args, argN
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
	)
	if err := row.Scan(&event.ID, &event.Date, &cellLine, &eventType, &passage,
		&vessel, &location, &medium, &cellType, &notes, &operator,
		&thawID, &linkedThaw, &cryoPos, &attachment, &assignedTo, &nextAction,
		&volume, &expType, &expStage, &expCond, &protoRef, &outcome, &metrics,
		&event.CreatedBy, &event.CreatedAt); err != nil {
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
