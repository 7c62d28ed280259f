package export

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"vialtrack/pkg/domain"
)

// ImportResult summarises one workbook import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportWorkbook reads a previously exported workbook and inserts its events.
// Rows whose id already exists in the store are skipped so re-importing the
// same file is safe. Rows that fail validation are reported in Errors and do
// not abort the rest of the import.
func ImportWorkbook(ctx context.Context, r io.Reader, store domain.EventStore) (ImportResult, error) {
	var result ImportResult

	f, err := excelize.OpenReader(r)
	if err != nil {
		return result, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(logSheet)
	if err != nil {
		return result, fmt.Errorf("read sheet %s: %w", logSheet, err)
	}
	if len(rows) == 0 {
		return result, nil
	}

	cols := columnIndex(rows[0])
	for i, row := range rows[1:] {
		rowNum := i + 2
		event, err := rowToEvent(cols, row)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		if event.ID != 0 {
			if _, found, err := store.GetByID(ctx, event.ID); err != nil {
				return result, err
			} else if found {
				result.Skipped++
				continue
			}
		}
		if err := event.Validate(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		if _, err := store.Insert(ctx, event); err != nil {
			return result, fmt.Errorf("row %d: %w", rowNum, err)
		}
		result.Imported++
	}
	return result, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	return cols
}

func rowToEvent(cols map[string]int, row []string) (domain.Event, error) {
	cell := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var event domain.Event
	if raw := cell("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return event, fmt.Errorf("bad id %q", raw)
		}
		event.ID = id
	}
	event.Date = cell("date")
	event.CellLine = cell("cell_line")
	event.EventType = domain.EventType(cell("event_type"))
	if raw := cell("passage"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			return event, fmt.Errorf("bad passage %q", raw)
		}
		event.Passage = &p
	}
	event.Vessel = cell("vessel")
	event.Location = cell("location")
	event.Medium = cell("culture_medium")
	event.CellType = cell("cell_type")
	event.Notes = cell("notes")
	event.Operator = cell("operator")
	event.ThawID = cell("thaw_id")
	event.LinkedThawID = cell("linked_thaw_id")
	event.CryoVialPosition = cell("cryo_vial_position")
	event.AttachmentKey = cell("attachment_key")
	event.AssignedTo = cell("assigned_to")
	event.NextActionDate = cell("next_action_date")
	if raw := cell("volume"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return event, fmt.Errorf("bad volume %q", raw)
		}
		event.Volume = &v
	}
	event.ExperimentType = cell("experiment_type")
	event.ExperimentStage = cell("experiment_stage")
	event.ExperimentalConditions = cell("experimental_conditions")
	event.ProtocolReference = cell("protocol_reference")
	event.OutcomeStatus = cell("outcome_status")
	event.SuccessMetrics = cell("success_metrics")
	event.CreatedBy = cell("created_by")
	if raw := cell("created_at"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return event, fmt.Errorf("bad created_at %q", raw)
		}
		event.CreatedAt = ts
	}
	return event, nil
}
