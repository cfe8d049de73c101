package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/linkcheck/internal/model"
)

// Record types written by JSONLogger.
const (
	RecordStart   = "start"
	RecordResult  = "result"
	RecordSummary = "summary"
)

// JSONRecord is one line of JSONLogger output. Exactly one of Run, Result
// and Summary is set, matching Type.
type JSONRecord struct {
	Type    string         `json:"type"`
	Version string         `json:"version,omitempty"`
	Run     *model.RunInfo `json:"run,omitempty"`
	Result  *model.Result  `json:"result,omitempty"`
	Summary *model.Summary `json:"summary,omitempty"`
}

// JSONLogger writes newline-delimited JSON so results can be streamed into
// other tools while the run is in progress.
type JSONLogger struct {
	baseWriter
	enc *json.Encoder
}

// NewJSONLogger creates a JSONLogger that writes to w.
func NewJSONLogger(w io.Writer, opts Options) *JSONLogger {
	return &JSONLogger{
		baseWriter: newBaseWriter(w, opts),
		enc:        json.NewEncoder(w),
	}
}

// Start implements Logger.
func (l *JSONLogger) Start(info model.RunInfo) error {
	return l.enc.Encode(JSONRecord{Type: RecordStart, Version: l.opts.Version, Run: &info})
}

// Log implements Logger.
func (l *JSONLogger) Log(r *model.Result) error {
	if !l.opts.shouldLog(r) {
		return nil
	}
	return l.enc.Encode(JSONRecord{Type: RecordResult, Result: r})
}

// End implements Logger.
func (l *JSONLogger) End(s model.Summary) error {
	return l.enc.Encode(JSONRecord{Type: RecordSummary, Summary: &s})
}
