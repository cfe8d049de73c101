package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/nao1215/linkcheck/internal/model"
)

// resultColumns is the column order of the csv and xlsx outputs.
var resultColumns = []string{
	"url", "parent", "depth", "extern", "status", "status_code", "message",
	"content_type", "size", "warnings", "info", "duration_ms", "checked_at",
}

// resultRow returns r as strings in resultColumns order.
func resultRow(r *model.Result) []string {
	return []string{
		r.URL,
		r.Parent,
		strconv.Itoa(r.Depth),
		strconv.FormatBool(r.Extern),
		r.Status.String(),
		strconv.Itoa(r.StatusCode),
		r.Message,
		r.ContentType,
		strconv.FormatInt(r.Size, 10),
		joinNotes(r.Warnings),
		joinNotes(r.Info),
		strconv.FormatInt(r.Duration.Milliseconds(), 10),
		formatTime(r.CheckedAt),
	}
}

// CSVLogger writes one row per result after a header row.
type CSVLogger struct {
	baseWriter
	w *csv.Writer
}

// NewCSVLogger creates a CSVLogger that writes to w.
func NewCSVLogger(w io.Writer, opts Options) *CSVLogger {
	return &CSVLogger{
		baseWriter: newBaseWriter(w, opts),
		w:          csv.NewWriter(w),
	}
}

// Start implements Logger.
func (l *CSVLogger) Start(model.RunInfo) error {
	if err := l.w.Write(resultColumns); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

// Log implements Logger. Rows are flushed immediately.
func (l *CSVLogger) Log(r *model.Result) error {
	if !l.opts.shouldLog(r) {
		return nil
	}
	if err := l.w.Write(resultRow(r)); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

// End implements Logger.
func (l *CSVLogger) End(model.Summary) error {
	l.w.Flush()
	return l.w.Error()
}
