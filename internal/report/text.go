package report

import (
	"io"
	"strings"
	"time"

	"golang.org/x/text/message"

	"github.com/nao1215/linkcheck/internal/model"
)

// TextLogger writes human-readable result blocks and a closing summary.
type TextLogger struct {
	baseWriter

	printer *message.Printer
	err     error
}

// NewTextLogger creates a TextLogger that writes to w.
func NewTextLogger(w io.Writer, opts Options) *TextLogger {
	return &TextLogger{
		baseWriter: newBaseWriter(w, opts),
		printer:    message.NewPrinter(opts.language()),
	}
}

// printf writes and keeps the first error.
func (l *TextLogger) printf(format string, args ...any) {
	if l.err != nil {
		return
	}
	_, l.err = l.printer.Fprintf(l.output, format, args...)
}

// Start implements Logger.
func (l *TextLogger) Start(info model.RunInfo) error {
	version := ""
	if l.opts.Version != "" {
		version = " " + l.opts.Version
	}
	l.printf("linkcheck%s\n", version)
	l.printf("Run %s started at %s with %d threads\n",
		info.ID, info.StartedAt.Format("2006-01-02 15:04:05 MST"), info.Threads)
	if len(info.Seeds) > 0 {
		l.printf("Checking %s\n", strings.Join(info.Seeds, ", "))
	}
	l.printf("\n")
	return l.err
}

// Log implements Logger.
func (l *TextLogger) Log(r *model.Result) error {
	if !l.opts.shouldLog(r) {
		return l.err
	}

	l.printf("%-11s%s\n", "URL", r.URL)
	if r.Parent != "" {
		l.printf("%-11s%s\n", "Parent URL", r.Parent)
	}
	if r.ContentType != "" {
		l.printf("%-11s%s\n", "Type", r.ContentType)
	}
	if r.Size > 0 {
		l.printf("%-11s%d bytes\n", "Size", r.Size)
	}
	for _, info := range r.Info {
		l.printf("%-11s%s\n", "Info", info)
	}
	for _, warning := range r.Warnings {
		l.printf("%-11s%s\n", "Warning", warning)
	}
	if r.Duration > 0 {
		l.printf("%-11s%s\n", "Check time", r.Duration.Round(time.Millisecond))
	}
	result := r.Status.String()
	if r.Message != "" {
		result += ": " + r.Message
	}
	l.printf("%-11s%s\n\n", "Result", result)
	return l.err
}

// End implements Logger.
func (l *TextLogger) End(s model.Summary) error {
	if s.Aborted {
		l.printf("Run aborted; results are incomplete.\n")
	}
	l.printf("That's it. %d links checked: %d valid, %d broken, %d ignored, %d warnings.\n",
		s.Total, s.Valid, s.Invalid, s.Ignored, s.Warnings)
	l.printf("Stopped checking at %s (%s)\n",
		s.FinishedAt.Format("2006-01-02 15:04:05 MST"), s.Elapsed().Round(time.Millisecond))
	return l.err
}
