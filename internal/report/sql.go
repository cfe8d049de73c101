package report

import (
	"context"

	"github.com/nao1215/linkcheck/internal/database"
	"github.com/nao1215/linkcheck/internal/model"
)

// SQLLogger stores the run and all of its results in the result database.
// It stores every result regardless of Options.Verbose so the run can be
// inspected later.
type SQLLogger struct {
	db    *database.ResultDB
	runID string
}

// NewSQLLogger creates an SQLLogger on opts.DB.
func NewSQLLogger(opts Options) (*SQLLogger, error) {
	if opts.DB == nil {
		return nil, ErrNoDatabase
	}
	return &SQLLogger{db: opts.DB}, nil
}

// Start implements Logger.
func (l *SQLLogger) Start(info model.RunInfo) error {
	if err := l.db.InsertRun(context.Background(), info); err != nil {
		return err
	}
	l.runID = info.ID
	return nil
}

// Log implements Logger.
func (l *SQLLogger) Log(r *model.Result) error {
	if l.runID == "" {
		return ErrNotStarted
	}
	return l.db.InsertResult(context.Background(), l.runID, r)
}

// End implements Logger.
func (l *SQLLogger) End(s model.Summary) error {
	if l.runID == "" {
		return ErrNotStarted
	}
	return l.db.FinishRun(context.Background(), s)
}
