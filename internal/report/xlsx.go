package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/linkcheck/internal/model"
)

// Sheet names of the xlsx output.
const (
	ResultsSheet = "Results"
	SummarySheet = "Summary"
)

// XLSXLogger builds an Excel workbook with a results sheet and a summary
// sheet. The workbook is written to the output when the run ends.
type XLSXLogger struct {
	baseWriter

	file *excelize.File
	info model.RunInfo
	row  int
}

// NewXLSXLogger creates an XLSXLogger that writes to w.
func NewXLSXLogger(w io.Writer, opts Options) *XLSXLogger {
	return &XLSXLogger{baseWriter: newBaseWriter(w, opts)}
}

// Start implements Logger.
func (l *XLSXLogger) Start(info model.RunInfo) error {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to create results sheet: %w", err)
	}

	header := make([]any, len(resultColumns))
	for i, c := range resultColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(ResultsSheet, "A1", &header); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(ResultsSheet, 1, 1, style)
	}

	l.file = f
	l.info = info
	l.row = 1
	return nil
}

// Log implements Logger.
func (l *XLSXLogger) Log(r *model.Result) error {
	if l.file == nil {
		return ErrNotStarted
	}
	if !l.opts.shouldLog(r) {
		return nil
	}

	l.row++
	cell, err := excelize.CoordinatesToCellName(1, l.row)
	if err != nil {
		return err
	}
	row := []any{
		r.URL,
		r.Parent,
		r.Depth,
		r.Extern,
		r.Status.String(),
		r.StatusCode,
		r.Message,
		r.ContentType,
		r.Size,
		joinNotes(r.Warnings),
		joinNotes(r.Info),
		r.Duration.Milliseconds(),
		formatTime(r.CheckedAt),
	}
	if err := l.file.SetSheetRow(ResultsSheet, cell, &row); err != nil {
		return fmt.Errorf("failed to write row %d: %w", l.row, err)
	}
	return nil
}

// End implements Logger. It writes the workbook and releases it.
func (l *XLSXLogger) End(s model.Summary) error {
	if l.file == nil {
		return ErrNotStarted
	}
	defer func() {
		_ = l.file.Close()
		l.file = nil
	}()

	if _, err := l.file.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	rows := [][]any{
		{"run", s.RunID},
		{"seeds", joinNotes(l.info.Seeds)},
		{"threads", l.info.Threads},
		{"started_at", formatTime(s.StartedAt)},
		{"finished_at", formatTime(s.FinishedAt)},
		{"total", s.Total},
		{"valid", s.Valid},
		{"invalid", s.Invalid},
		{"ignored", s.Ignored},
		{"warnings", s.Warnings},
		{"aborted", strconv.FormatBool(s.Aborted)},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := l.file.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
	}

	if err := l.file.Write(l.output); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// formatTime renders times as text; the zero time is an empty cell.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
