package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/linkcheck/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "linkcheck.db"

// ErrRunNotFound is returned when a run ID is not stored.
var ErrRunNotFound = errors.New("run not found")

// ResultDB provides SQLite-based storage for check runs and their results.
type ResultDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ResultDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ResultDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ResultDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ResultDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *ResultDB) Close() error {
	return rdb.db.Close()
}

// Path returns the database file path.
func (rdb *ResultDB) Path() string {
	return rdb.dbPath
}

func (rdb *ResultDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seeds TEXT NOT NULL,
		threads INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		total INTEGER DEFAULT 0,
		valid INTEGER DEFAULT 0,
		invalid INTEGER DEFAULT 0,
		ignored INTEGER DEFAULT 0,
		warnings INTEGER DEFAULT 0,
		aborted INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		parent TEXT,
		depth INTEGER NOT NULL,
		extern INTEGER NOT NULL,
		status TEXT NOT NULL,
		status_code INTEGER,
		message TEXT,
		content_type TEXT,
		size INTEGER,
		warnings TEXT,
		info TEXT,
		duration_ms INTEGER,
		checked_at TEXT,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
	CREATE INDEX IF NOT EXISTS idx_results_status ON results(status);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is a stored run.
type RunRecord struct {
	Info model.RunInfo

	// Summary is zero until FinishRun was called.
	Summary model.Summary

	// Finished reports whether FinishRun was called.
	Finished bool
}

// InsertRun stores the start of a run.
func (rdb *ResultDB) InsertRun(ctx context.Context, info model.RunInfo) error {
	seedsJSON, err := json.Marshal(info.Seeds)
	if err != nil {
		return fmt.Errorf("failed to serialize seeds: %w", err)
	}

	query := `INSERT INTO runs (id, seeds, threads, started_at) VALUES (?, ?, ?, ?)`
	if _, err := rdb.db.ExecContext(ctx, query,
		info.ID,
		string(seedsJSON),
		info.Threads,
		formatTimestamp(info.StartedAt),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishRun stores the summary of a run started with InsertRun.
func (rdb *ResultDB) FinishRun(ctx context.Context, summary model.Summary) error {
	query := `
	UPDATE runs SET finished_at = ?, total = ?, valid = ?, invalid = ?,
		ignored = ?, warnings = ?, aborted = ?
	WHERE id = ?
	`
	res, err := rdb.db.ExecContext(ctx, query,
		formatTimestamp(summary.FinishedAt),
		summary.Total,
		summary.Valid,
		summary.Invalid,
		summary.Ignored,
		summary.Warnings,
		summary.Aborted,
		summary.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, summary.RunID)
	}
	return nil
}

// InsertResult stores one result of a run. A second result for the same
// URL in the same run replaces the first.
func (rdb *ResultDB) InsertResult(ctx context.Context, runID string, r *model.Result) error {
	warnings, err := marshalStrings(r.Warnings)
	if err != nil {
		return fmt.Errorf("failed to serialize warnings: %w", err)
	}
	info, err := marshalStrings(r.Info)
	if err != nil {
		return fmt.Errorf("failed to serialize info: %w", err)
	}

	query := `
	INSERT INTO results (run_id, url, parent, depth, extern, status, status_code,
		message, content_type, size, warnings, info, duration_ms, checked_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		parent = excluded.parent,
		depth = excluded.depth,
		extern = excluded.extern,
		status = excluded.status,
		status_code = excluded.status_code,
		message = excluded.message,
		content_type = excluded.content_type,
		size = excluded.size,
		warnings = excluded.warnings,
		info = excluded.info,
		duration_ms = excluded.duration_ms,
		checked_at = excluded.checked_at
	`
	if _, err := rdb.db.ExecContext(ctx, query,
		runID,
		r.URL,
		r.Parent,
		r.Depth,
		r.Extern,
		r.Status.String(),
		r.StatusCode,
		r.Message,
		r.ContentType,
		r.Size,
		warnings,
		info,
		r.Duration.Milliseconds(),
		formatTimestamp(r.CheckedAt),
	); err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}
	return nil
}

// ListResults returns the results of a run in insertion order.
func (rdb *ResultDB) ListResults(ctx context.Context, runID string) ([]*model.Result, error) {
	query := `
	SELECT url, parent, depth, extern, status, status_code, message,
		content_type, size, warnings, info, duration_ms, checked_at
	FROM results
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := rdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []*model.Result
	for rows.Next() {
		var (
			r                      model.Result
			parent, message, ctype sql.NullString
			status, warnings, info string
			checkedAt              sql.NullString
			durationMS, size       sql.NullInt64
			statusCode             sql.NullInt64
		)
		if err := rows.Scan(
			&r.URL,
			&parent,
			&r.Depth,
			&r.Extern,
			&status,
			&statusCode,
			&message,
			&ctype,
			&size,
			&warnings,
			&info,
			&durationMS,
			&checkedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		if err := r.Status.UnmarshalText([]byte(status)); err != nil {
			return nil, fmt.Errorf("failed to parse result %s: %w", r.URL, err)
		}
		r.Parent = parent.String
		r.Message = message.String
		r.ContentType = ctype.String
		r.StatusCode = int(statusCode.Int64)
		r.Size = size.Int64
		r.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		r.CheckedAt = parseTimestamp(checkedAt.String)
		if r.Warnings, err = unmarshalStrings(warnings); err != nil {
			return nil, fmt.Errorf("failed to parse warnings of %s: %w", r.URL, err)
		}
		if r.Info, err = unmarshalStrings(info); err != nil {
			return nil, fmt.Errorf("failed to parse info of %s: %w", r.URL, err)
		}
		results = append(results, &r)
	}

	return results, rows.Err()
}

// GetRun returns a stored run. It returns ErrRunNotFound for an unknown ID.
func (rdb *ResultDB) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	rows, err := rdb.queryRuns(ctx, "WHERE id = ?", runID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return &rows[0], nil
}

// ListRuns returns all stored runs, newest first.
func (rdb *ResultDB) ListRuns(ctx context.Context) ([]RunRecord, error) {
	return rdb.queryRuns(ctx, "")
}

func (rdb *ResultDB) queryRuns(ctx context.Context, where string, args ...any) ([]RunRecord, error) {
	query := `
	SELECT id, seeds, threads, started_at, finished_at, total, valid, invalid,
		ignored, warnings, aborted
	FROM runs ` + where + `
	ORDER BY started_at DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			rec        RunRecord
			seedsJSON  string
			startedAt  string
			finishedAt sql.NullString
		)
		if err := rows.Scan(
			&rec.Info.ID,
			&seedsJSON,
			&rec.Info.Threads,
			&startedAt,
			&finishedAt,
			&rec.Summary.Total,
			&rec.Summary.Valid,
			&rec.Summary.Invalid,
			&rec.Summary.Ignored,
			&rec.Summary.Warnings,
			&rec.Summary.Aborted,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if err := json.Unmarshal([]byte(seedsJSON), &rec.Info.Seeds); err != nil {
			return nil, fmt.Errorf("failed to parse seeds of run %s: %w", rec.Info.ID, err)
		}
		rec.Info.StartedAt = parseTimestamp(startedAt)
		rec.Summary.RunID = rec.Info.ID
		rec.Summary.StartedAt = rec.Info.StartedAt
		if finishedAt.Valid {
			rec.Finished = true
			rec.Summary.FinishedAt = parseTimestamp(finishedAt.String)
		}
		runs = append(runs, rec)
	}

	return runs, rows.Err()
}

func marshalStrings(s []string) (string, error) {
	if len(s) == 0 {
		return "", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalStrings(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// timestampLayout has a fixed width so that string ordering in SQL
// matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
