// Package export renders culture logs as Excel workbooks and CSV tables, and
// imports previously exported workbooks back into a store.
package export

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"vialtrack/pkg/domain"
)

// logSheet is the primary worksheet holding one row per event.
const logSheet = "Culture_Logs"

// infoSheet records export provenance.
const infoSheet = "Export_Info"

// eventHeader is the column order of the log sheet. Import relies on this
// exact order, so it must not be reshuffled without a format version bump.
var eventHeader = []string{
	"id", "date", "cell_line", "event_type", "passage", "vessel", "location",
	"culture_medium", "cell_type", "notes", "operator", "thaw_id",
	"linked_thaw_id", "cryo_vial_position", "attachment_key", "assigned_to",
	"next_action_date", "volume", "experiment_type", "experiment_stage",
	"experimental_conditions", "protocol_reference", "outcome_status",
	"success_metrics", "created_by", "created_at",
}

func eventRow(ev domain.Event) []interface{} {
	row := make([]interface{}, 0, len(eventHeader))
	row = append(row, ev.ID, ev.Date, ev.CellLine, string(ev.EventType))
	if ev.Passage != nil {
		row = append(row, *ev.Passage)
	} else {
		row = append(row, "")
	}
	row = append(row, ev.Vessel, ev.Location, ev.Medium, ev.CellType, ev.Notes,
		ev.Operator, ev.ThawID, ev.LinkedThawID, ev.CryoVialPosition,
		ev.AttachmentKey, ev.AssignedTo, ev.NextActionDate)
	if ev.Volume != nil {
		row = append(row, *ev.Volume)
	} else {
		row = append(row, "")
	}
	row = append(row, ev.ExperimentType, ev.ExperimentStage,
		ev.ExperimentalConditions, ev.ProtocolReference, ev.OutcomeStatus,
		ev.SuccessMetrics, ev.CreatedBy,
		ev.CreatedAt.UTC().Format(time.RFC3339))
	return row
}

// Options controls what goes into an exported workbook.
type Options struct {
	// Filter restricts the exported events. The zero value exports everything.
	Filter domain.Filter

	// ExportedBy is recorded on the info sheet.
	ExportedBy string

	// Now stamps the export time. Nil uses the wall clock.
	Now func() time.Time
}

// WriteWorkbook streams an Excel workbook with the filtered event log, an
// info sheet, and one sheet per reference vocabulary when refs is non-nil.
func WriteWorkbook(ctx context.Context, w io.Writer, store domain.EventStore, refs domain.ReferenceStore, opts Options) error {
	events, err := store.Query(ctx, opts.Filter)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", logSheet)
	if err := writeRows(f, logSheet, eventHeader, eventsToRows(events)); err != nil {
		return err
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	if _, err := f.NewSheet(infoSheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", infoSheet, err)
	}
	info := [][]interface{}{
		{"exported_at", now().UTC().Format(time.RFC3339)},
		{"exported_by", opts.ExportedBy},
		{"total_events", len(events)},
	}
	if err := writeRows(f, infoSheet, nil, info); err != nil {
		return err
	}

	if refs != nil {
		for _, kind := range domain.RefKinds() {
			values, err := refs.ListValues(ctx, kind)
			if err != nil {
				return fmt.Errorf("list %s values: %w", kind, err)
			}
			sheet := "Ref_" + string(kind)
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("create sheet %s: %w", sheet, err)
			}
			rows := make([][]interface{}, 0, len(values))
			for _, v := range values {
				rows = append(rows, []interface{}{v})
			}
			if err := writeRows(f, sheet, []string{"value"}, rows); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func eventsToRows(events []domain.Event) [][]interface{} {
	rows := make([][]interface{}, 0, len(events))
	for _, ev := range events {
		rows = append(rows, eventRow(ev))
	}
	return rows
}

func writeRows(f *excelize.File, sheet string, header []string, rows [][]interface{}) error {
	rowIdx := 1
	if header != nil {
		cells := make([]interface{}, len(header))
		for i, h := range header {
			cells[i] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &cells); err != nil {
			return fmt.Errorf("write %s header: %w", sheet, err)
		}
		rowIdx = 2
	}
	for _, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return fmt.Errorf("cell name for row %d: %w", rowIdx, err)
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, rowIdx, err)
		}
		rowIdx++
	}
	return nil
}

// LineageCSV renders a lineage's event history as CSV rows, header first.
func LineageCSV(view domain.LineageView) [][]string {
	rows := [][]string{{"date", "event_type", "passage", "vessel", "location", "culture_medium", "operator", "notes"}}
	for _, ev := range view.Events {
		passage := ""
		if ev.Passage != nil {
			passage = strconv.Itoa(*ev.Passage)
		}
		rows = append(rows, []string{
			ev.Date, string(ev.EventType), passage, ev.Vessel, ev.Location,
			ev.Medium, ev.Operator, ev.Notes,
		})
	}
	return rows
}

// AnalyticsCSV renders lineage analytics as key/value CSV rows.
func AnalyticsCSV(stats domain.AnalyticsView) [][]string {
	rows := [][]string{
		{"metric", "value"},
		{"thaw_id", stats.ThawID},
		{"total_splits", strconv.Itoa(stats.TotalSplits)},
		{"total_observations", strconv.Itoa(stats.TotalObservations)},
		{"media_changes", strconv.Itoa(stats.MediaChanges)},
		{"avg_passage_interval", strconv.FormatFloat(stats.AvgPassageInterval, 'f', 2, 64)},
	}
	for i, interval := range stats.PassageIntervals {
		rows = append(rows, []string{fmt.Sprintf("passage_interval_%d", i+1), strconv.Itoa(interval)})
	}
	return rows
}

// AlertsCSV renders evaluated alerts as CSV rows.
func AlertsCSV(thawID string, alerts []domain.Alert) [][]string {
	rows := [][]string{{"thaw_id", "rule", "severity", "message"}}
	for _, a := range alerts {
		rows = append(rows, []string{thawID, a.Rule, string(a.Severity), a.Message})
	}
	return rows
}
