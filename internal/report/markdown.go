package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/linkcheck/internal/model"
)

// MarkdownLogger collects results and writes a Markdown report when the
// run ends.
type MarkdownLogger struct {
	baseWriter

	info    model.RunInfo
	results []*model.Result
	started bool
}

// NewMarkdownLogger creates a MarkdownLogger that writes to w.
func NewMarkdownLogger(w io.Writer, opts Options) *MarkdownLogger {
	return &MarkdownLogger{baseWriter: newBaseWriter(w, opts)}
}

// Start implements Logger.
func (l *MarkdownLogger) Start(info model.RunInfo) error {
	l.info = info
	l.started = true
	return nil
}

// Log implements Logger.
func (l *MarkdownLogger) Log(r *model.Result) error {
	if !l.started {
		return ErrNotStarted
	}
	if l.opts.shouldLog(r) {
		l.results = append(l.results, r)
	}
	return nil
}

// End implements Logger.
func (l *MarkdownLogger) End(s model.Summary) error {
	if !l.started {
		return ErrNotStarted
	}

	md := markdown.NewMarkdown(l.output)
	l.writeHeader(md, s)
	l.writeSummary(md, s)
	l.writeResults(md)
	l.writeFooter(md)
	return md.Build()
}

func (l *MarkdownLogger) writeHeader(md *markdown.Markdown, s model.Summary) {
	md.H1("Link Check Report")
	md.PlainText("")

	status := "✅ Complete"
	if s.Aborted {
		status = "⚠️ Aborted (partial results)"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + l.info.ID + "`"},
			{"Seeds", inlineList(l.info.Seeds)},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", s.Elapsed().String()},
			{"Threads", strconv.Itoa(l.info.Threads)},
			{"Status", status},
		},
	})
	md.PlainText("")
}

func (l *MarkdownLogger) writeSummary(md *markdown.Markdown, s model.Summary) {
	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Result", "Count"},
		Rows: [][]string{
			{"✅ Valid", strconv.Itoa(s.Valid)},
			{"❌ Broken", strconv.Itoa(s.Invalid)},
			{"⏭️ Ignored", strconv.Itoa(s.Ignored)},
			{"⚠️ Warnings", strconv.Itoa(s.Warnings)},
			{"**Total**", "**" + strconv.Itoa(s.Total) + "**"},
		},
	})
	md.PlainText("")

	if s.Total > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Link Status"),
			piechart.WithShowData(true),
		)
		for _, slice := range []struct {
			label string
			n     int
		}{
			{"Valid", s.Valid},
			{"Broken", s.Invalid},
			{"Ignored", s.Ignored},
		} {
			if slice.n > 0 {
				chart.LabelAndIntValue(slice.label, uint64(slice.n))
			}
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case s.Invalid > 0:
		md.Cautionf("%d broken link(s) found.", s.Invalid)
	case s.Warnings > 0:
		md.Warningf("No broken links, but %d warning(s).", s.Warnings)
	default:
		md.Tip("No broken links found.")
	}
	md.PlainText("")
}

func (l *MarkdownLogger) writeResults(md *markdown.Markdown) {
	md.H2("Results")
	md.PlainText("")

	if len(l.results) == 0 {
		md.PlainText("Nothing to report.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(l.results))
	for i, r := range l.results {
		rows[i] = []string{
			truncateString(r.URL, 80),
			truncateString(dash(r.Parent), 60),
			r.Status.String(),
			truncateString(dash(r.Message), 60),
			truncateString(dash(joinNotes(r.Warnings)), 60),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Parent", "Status", "Message", "Warnings"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (l *MarkdownLogger) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	if l.opts.Version != "" {
		md.PlainTextf("*Report generated by [linkcheck %s](https://github.com/nao1215/linkcheck)*", l.opts.Version)
		return
	}
	md.PlainText("*Report generated by [linkcheck](https://github.com/nao1215/linkcheck)*")
}

func inlineList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += "`" + item + "`"
	}
	return out
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
