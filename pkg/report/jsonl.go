package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/getmockd/gqlprobe/pkg/engine"
	"github.com/getmockd/gqlprobe/pkg/pii"
	"github.com/getmockd/gqlprobe/pkg/probe"
)

// Record is one line written by JSONL.
type Record struct {
	RunID string `json:"run_id,omitempty"`
	probe.Result
	Curl string `json:"curl,omitempty"`
}

// JSONL writes one Record per probe result.
type JSONL struct {
	enc    *json.Encoder
	closer io.Closer
	runID  string
	err    error
}

// NewJSONL returns a JSONL sink writing to w. Close does not close w.
func NewJSONL(w io.Writer, runID string) *JSONL {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONL{enc: enc, runID: runID}
}

// CreateJSONL creates (or truncates) path and returns a sink writing to it.
func CreateJSONL(path, runID string) (*JSONL, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create jsonl output: %w", err)
	}
	j := NewJSONL(f, runID)
	j.closer = f
	return j, nil
}

// Result implements engine.Sink.
func (j *JSONL) Result(r probe.Result) {
	if j.err != nil {
		return
	}
	rec := Record{RunID: j.runID, Result: r}
	if r.Outcome.Succeeded() {
		rec.Curl = CurlCommand(r.URL, r.Query)
	}
	if err := j.enc.Encode(rec); err != nil {
		j.err = fmt.Errorf("write jsonl record: %w", err)
	}
}

// Begin implements engine.Sink.
func (j *JSONL) Begin(string) {}

// Skipped implements engine.Sink.
func (j *JSONL) Skipped(string, engine.Skipped) {}

// PIIMatch implements engine.Sink.
func (j *JSONL) PIIMatch(string, pii.FieldMatch) {}

// End implements engine.Sink.
func (j *JSONL) End(*engine.EndpointReport) {}

// Close closes the file opened by CreateJSONL and returns the first error seen.
func (j *JSONL) Close() error {
	if j.closer != nil {
		if err := j.closer.Close(); err != nil && j.err == nil {
			j.err = err
		}
		j.closer = nil
	}
	return j.err
}

var _ engine.Sink = (*JSONL)(nil)
