package report

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"

	"github.com/nao1215/linkcheck/internal/database"
	"github.com/nao1215/linkcheck/internal/model"
)

var testStart = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func testRun() model.RunInfo {
	return model.RunInfo{
		ID:        "run-1",
		Seeds:     []string{"http://example.com/"},
		Threads:   4,
		StartedAt: testStart,
	}
}

func testResults() []*model.Result {
	return []*model.Result{
		{
			URL:        "http://example.com/",
			Status:     model.StatusValid,
			StatusCode: 200,
			Message:    "200 OK",
			Duration:   1500 * time.Millisecond,
			CheckedAt:  testStart.Add(time.Second),
		},
		{
			URL:        "http://example.com/missing",
			Parent:     "http://example.com/",
			Depth:      1,
			Status:     model.StatusInvalid,
			StatusCode: 404,
			Message:    "404 Not Found",
			CheckedAt:  testStart.Add(2 * time.Second),
		},
		{
			URL:      "ftp://example.com/file",
			Parent:   "http://example.com/",
			Depth:    1,
			Status:   model.StatusIgnored,
			Message:  "ftp URL ignored",
			Warnings: []string{`unsupported scheme "ftp"`},
		},
		{
			URL:    "http://example.com/about",
			Parent: "http://example.com/",
			Depth:  1,
			Status: model.StatusValid,
		},
	}
}

func testSummary() model.Summary {
	s := model.Summary{RunID: "run-1", StartedAt: testStart, FinishedAt: testStart.Add(3 * time.Second)}
	for _, r := range testResults() {
		s.Add(r)
	}
	return s
}

// runLogger feeds the test run through l.
func runLogger(t *testing.T, l Logger) {
	t.Helper()

	if err := l.Start(testRun()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	for _, r := range testResults() {
		if err := l.Log(r); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}
	if err := l.End(testSummary()); err != nil {
		t.Fatalf("End failed: %v", err)
	}
}

func TestTextLogger(t *testing.T) {
	t.Parallel()

	t.Run("only broken links and warnings are logged by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		runLogger(t, NewTextLogger(&buf, Options{}))

		output := buf.String()
		for _, want := range []string{
			"Run run-1 started",
			"http://example.com/missing",
			"Parent URL http://example.com/",
			"invalid: 404 Not Found",
			`Warning    unsupported scheme "ftp"`,
			"4 links checked: 2 valid, 1 broken, 1 ignored, 1 warnings.",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in output:\n%s", want, output)
			}
		}
		if strings.Contains(output, "URL        http://example.com/about") {
			t.Errorf("valid link must not be logged:\n%s", output)
		}
	})

	t.Run("verbose logs every result", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		runLogger(t, NewTextLogger(&buf, Options{Verbose: true}))

		output := buf.String()
		if !strings.Contains(output, "URL        http://example.com/about") {
			t.Errorf("expected valid link in verbose output:\n%s", output)
		}
		if !strings.Contains(output, "Check time 1.5s") {
			t.Errorf("expected check time:\n%s", output)
		}
	})

	t.Run("numbers use the language's grouping", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		l := NewTextLogger(&buf, Options{Language: language.German})
		if err := l.End(model.Summary{Total: 12345, Valid: 12345}); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "12.345 links checked") {
			t.Errorf("expected German grouping, got %s", buf.String())
		}

		buf.Reset()
		l = NewTextLogger(&buf, Options{})
		if err := l.End(model.Summary{Total: 12345, Valid: 12345}); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "12,345 links checked") {
			t.Errorf("expected English grouping, got %s", buf.String())
		}
	})

	t.Run("aborted run is marked", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := NewTextLogger(&buf, Options{}).End(model.Summary{Aborted: true}); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "Run aborted") {
			t.Errorf("expected abort notice, got %s", buf.String())
		}
	})
}

func TestJSONLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	runLogger(t, NewJSONLogger(&buf, Options{Verbose: true, Version: "1.2.3"}))

	var records []JSONRecord
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var rec JSONRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		records = append(records, rec)
	}

	if len(records) != 6 {
		t.Fatalf("expected 6 records, got %d", len(records))
	}
	if records[0].Type != RecordStart || records[0].Run == nil || records[0].Version != "1.2.3" {
		t.Errorf("unexpected start record %+v", records[0])
	}
	if records[2].Type != RecordResult || records[2].Result.Status != model.StatusInvalid {
		t.Errorf("unexpected result record %+v", records[2])
	}
	last := records[len(records)-1]
	if last.Type != RecordSummary || last.Summary.Invalid != 1 {
		t.Errorf("unexpected summary record %+v", last)
	}
}

func TestMarkdownLogger(t *testing.T) {
	t.Parallel()

	t.Run("report has summary and broken links", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		runLogger(t, NewMarkdownLogger(&buf, Options{Version: "1.2.3"}))

		output := buf.String()
		for _, want := range []string{
			"# Link Check Report",
			"## Summary",
			"## Results",
			"http://example.com/missing",
			"1 broken link(s) found.",
			"mermaid",
			"linkcheck 1.2.3",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected %q in output:\n%s", want, output)
			}
		}
	})

	t.Run("log before start fails", func(t *testing.T) {
		t.Parallel()

		l := NewMarkdownLogger(&bytes.Buffer{}, Options{})
		if err := l.Log(&model.Result{}); !errors.Is(err, ErrNotStarted) {
			t.Errorf("expected ErrNotStarted, got %v", err)
		}
	})
}

func TestCSVLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	runLogger(t, NewCSVLogger(&buf, Options{Verbose: true}))

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected header and 4 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(resultColumns, ",") {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[2][0] != "http://example.com/missing" || rows[2][4] != "invalid" || rows[2][5] != "404" {
		t.Errorf("unexpected row %v", rows[2])
	}
	if rows[1][11] != "1500" {
		t.Errorf("expected duration in ms, got %q", rows[1][11])
	}
}

func TestXLSXLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	runLogger(t, NewXLSXLogger(&buf, Options{}))

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("invalid workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(ResultsSheet)
	if err != nil {
		t.Fatal(err)
	}
	// header, broken link, ignored link with warning
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %v", len(rows), rows)
	}
	if rows[1][0] != "http://example.com/missing" {
		t.Errorf("unexpected row %v", rows[1])
	}

	summary, err := f.GetRows(SummarySheet)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, row := range summary {
		if len(row) == 2 && row[0] == "invalid" && row[1] == "1" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected invalid count in summary sheet: %v", summary)
	}
}

func TestSQLLogger(t *testing.T) {
	t.Parallel()

	t.Run("run and all results are stored", func(t *testing.T) {
		t.Parallel()

		db, err := database.Open(t.TempDir(), database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		l, err := NewSQLLogger(Options{DB: db})
		if err != nil {
			t.Fatal(err)
		}
		runLogger(t, l)

		results, err := db.ListResults(context.Background(), "run-1")
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 4 {
			t.Errorf("expected 4 stored results, got %d", len(results))
		}
		run, err := db.GetRun(context.Background(), "run-1")
		if err != nil {
			t.Fatal(err)
		}
		if !run.Finished || run.Summary.Invalid != 1 {
			t.Errorf("unexpected run %+v", run)
		}
	})

	t.Run("missing database is an error", func(t *testing.T) {
		t.Parallel()

		if _, err := NewSQLLogger(Options{}); !errors.Is(err, ErrNoDatabase) {
			t.Errorf("expected ErrNoDatabase, got %v", err)
		}
	})
}

// failingLogger fails every call with err.
type failingLogger struct {
	err   error
	calls int
}

func (f *failingLogger) Start(model.RunInfo) error {
	f.calls++
	return f.err
}

func (f *failingLogger) Log(*model.Result) error {
	f.calls++
	return f.err
}

func (f *failingLogger) End(model.Summary) error {
	f.calls++
	return f.err
}

func TestMultiLogger(t *testing.T) {
	t.Parallel()

	t.Run("every logger is called", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		runLogger(t, NewMultiLogger(NewTextLogger(&a, Options{}), NewJSONLogger(&b, Options{})))
		if a.Len() == 0 || b.Len() == 0 {
			t.Error("expected output from both loggers")
		}
	})

	t.Run("errors are joined and later loggers still run", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("boom")
		first := &failingLogger{err: errBoom}
		second := &failingLogger{}
		m := NewMultiLogger(first, second)

		if err := m.Start(testRun()); !errors.Is(err, errBoom) {
			t.Errorf("expected boom, got %v", err)
		}
		if second.calls != 1 {
			t.Errorf("second logger must be called, got %d calls", second.calls)
		}
	})
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("built-in formats are registered", func(t *testing.T) {
		t.Parallel()

		got := strings.Join(NewRegistry().Names(), ",")
		if got != "csv,json,markdown,none,sql,text,xlsx" {
			t.Errorf("unexpected names %s", got)
		}
	})

	t.Run("names are case-insensitive", func(t *testing.T) {
		t.Parallel()

		l, err := NewRegistry().New("JSON", &bytes.Buffer{}, Options{})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := l.(*JSONLogger); !ok {
			t.Errorf("expected *JSONLogger, got %T", l)
		}
	})

	t.Run("unknown format is an error", func(t *testing.T) {
		t.Parallel()

		_, err := NewRegistry().New("yaml", &bytes.Buffer{}, Options{})
		if !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("expected ErrUnknownFormat, got %v", err)
		}
	})

	t.Run("custom format can be registered", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		r.Register("custom", func(io.Writer, Options) (Logger, error) {
			return NoneLogger{}, nil
		})
		if !r.Has("custom") {
			t.Error("expected custom format")
		}
	})
}
