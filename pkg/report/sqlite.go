package report

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/getmockd/gqlprobe/internal/id"
	"github.com/getmockd/gqlprobe/pkg/engine"
	"github.com/getmockd/gqlprobe/pkg/pii"
	"github.com/getmockd/gqlprobe/pkg/probe"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	finished_at DATETIME,
	endpoints INTEGER NOT NULL DEFAULT 0,
	failed_endpoints INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	url TEXT NOT NULL,
	operation TEXT NOT NULL,
	kind TEXT NOT NULL,
	query TEXT NOT NULL,
	status INTEGER,
	outcome TEXT NOT NULL,
	attempts INTEGER NOT NULL,
	error TEXT,
	args JSON,
	sensitive_keys JSON,
	response TEXT,
	duration_ms INTEGER NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS pii_matches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	url TEXT NOT NULL,
	type_name TEXT NOT NULL,
	field_name TEXT NOT NULL,
	field_type TEXT NOT NULL,
	category TEXT NOT NULL,
	keyword TEXT NOT NULL,
	severity TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_outcome ON results(outcome);
CREATE INDEX IF NOT EXISTS idx_pii_matches_run ON pii_matches(run_id);
`

// SQLite stores a run, its results and its PII matches in a SQLite database.
// Repeated runs append to the same file.
type SQLite struct {
	db        *sql.DB
	runID     string
	endpoints int
	failed    int
	err       error
}

// OpenSQLite opens (creating if needed) the database at path and records a new run.
func OpenSQLite(path, runID string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases and write ordering consistent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO runs (id, started_at) VALUES (?, ?)`, runID, runStart(runID)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return &SQLite{db: db, runID: runID}, nil
}

// runStart is the time encoded in a run id, or now for ids that carry none.
func runStart(runID string) time.Time {
	if t, err := id.RunTime(runID); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}

// DB exposes the underlying handle for queries.
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) exec(what, query string, args ...any) {
	if s.err != nil {
		return
	}
	if _, err := s.db.Exec(query, args...); err != nil {
		s.err = fmt.Errorf("failed to insert %s: %w", what, err)
	}
}

// Begin implements engine.Sink.
func (s *SQLite) Begin(string) { s.endpoints++ }

// Result implements engine.Sink.
func (s *SQLite) Result(r probe.Result) {
	args, err := marshalToNull(r.ArgsUsed)
	if err != nil && s.err == nil {
		s.err = err
	}
	keys, err := marshalToNull(r.SensitiveKeys)
	if err != nil && s.err == nil {
		s.err = err
	}
	s.exec("result", `
		INSERT INTO results (run_id, url, operation, kind, query, status, outcome, attempts,
			error, args, sensitive_keys, response, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, r.URL, r.Operation, string(r.Kind), r.Query, intToNull(r.StatusCode),
		string(r.Outcome), r.Attempts, stringToNull(r.Err), args, keys,
		stringToNull(r.BodyExcerpt), r.Duration.Milliseconds(),
	)
}

// Skipped implements engine.Sink.
func (s *SQLite) Skipped(string, engine.Skipped) {}

// PIIMatch implements engine.Sink.
func (s *SQLite) PIIMatch(url string, m pii.FieldMatch) {
	s.exec("pii match", `
		INSERT INTO pii_matches (run_id, url, type_name, field_name, field_type, category, keyword, severity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, url, m.TypeName, m.FieldName, m.Type.String(), string(m.Category), m.Keyword, string(m.Severity),
	)
}

// End implements engine.Sink.
func (s *SQLite) End(r *engine.EndpointReport) {
	if r.Err != nil {
		s.failed++
	}
}

// Close finishes the run row and closes the database.
func (s *SQLite) Close() error {
	if s.db == nil {
		return s.err
	}
	s.exec("run", `UPDATE runs SET finished_at = ?, endpoints = ?, failed_endpoints = ? WHERE id = ?`,
		time.Now().UTC(), s.endpoints, s.failed, s.runID)
	if err := s.db.Close(); err != nil && s.err == nil {
		s.err = fmt.Errorf("failed to close database: %w", err)
	}
	s.db = nil
	return s.err
}

func marshalToNull(v any) (sql.NullString, error) {
	switch x := v.(type) {
	case nil:
		return sql.NullString{}, nil
	case map[string]any:
		if len(x) == 0 {
			return sql.NullString{}, nil
		}
	case []string:
		if len(x) == 0 {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal column: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func intToNull(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

var _ engine.Sink = (*SQLite)(nil)
