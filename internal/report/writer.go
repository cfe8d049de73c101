package report

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/text/language"

	"github.com/nao1215/linkcheck/internal/crawler"
	"github.com/nao1215/linkcheck/internal/database"
	"github.com/nao1215/linkcheck/internal/model"
)

// Logger receives the results of a run.
type Logger interface {
	// Start is called once before the first result.
	Start(info model.RunInfo) error

	// Log is called once per checked URL.
	Log(r *model.Result) error

	// End is called once after the last result.
	End(summary model.Summary) error
}

var _ crawler.ResultLogger = Logger(nil)

// Options configures the loggers created by a Registry.
type Options struct {
	// Verbose logs every result. By default only broken links and results
	// with warnings are logged; the sql logger always stores everything.
	Verbose bool

	// Language selects number formatting of the text logger.
	// The zero value means English.
	Language language.Tag

	// Version is printed in report headers.
	Version string

	// DB is the result database used by the sql logger.
	DB *database.ResultDB
}

// shouldLog reports whether r is written under these options.
func (o Options) shouldLog(r *model.Result) bool {
	return o.Verbose || r.Status == model.StatusInvalid || len(r.Warnings) > 0
}

func (o Options) language() language.Tag {
	if o.Language == language.Und {
		return language.English
	}
	return o.Language
}

// baseWriter provides common functionality for loggers writing to an
// io.Writer.
type baseWriter struct {
	output io.Writer
	opts   Options
}

func newBaseWriter(output io.Writer, opts Options) baseWriter {
	return baseWriter{output: output, opts: opts}
}

// MultiLogger writes to multiple Loggers. Every logger is called even when
// an earlier one fails; the errors are joined.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a Logger that writes to all provided Loggers.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Start implements Logger.
func (m *MultiLogger) Start(info model.RunInfo) error {
	var errs []error
	for _, l := range m.loggers {
		errs = append(errs, l.Start(info))
	}
	return errors.Join(errs...)
}

// Log implements Logger.
func (m *MultiLogger) Log(r *model.Result) error {
	var errs []error
	for _, l := range m.loggers {
		errs = append(errs, l.Log(r))
	}
	return errors.Join(errs...)
}

// End implements Logger.
func (m *MultiLogger) End(summary model.Summary) error {
	var errs []error
	for _, l := range m.loggers {
		errs = append(errs, l.End(summary))
	}
	return errors.Join(errs...)
}

// NoneLogger discards everything.
type NoneLogger struct{}

// Start implements Logger.
func (NoneLogger) Start(model.RunInfo) error { return nil }

// Log implements Logger.
func (NoneLogger) Log(*model.Result) error { return nil }

// End implements Logger.
func (NoneLogger) End(model.Summary) error { return nil }

// joinNotes joins warnings or info notes into one cell.
func joinNotes(notes []string) string {
	return strings.Join(notes, "; ")
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
