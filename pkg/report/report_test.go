package report

import (
	"bufio"
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/gqlprobe/internal/id"
	"github.com/getmockd/gqlprobe/pkg/engine"
	"github.com/getmockd/gqlprobe/pkg/introspection"
	"github.com/getmockd/gqlprobe/pkg/pii"
	"github.com/getmockd/gqlprobe/pkg/probe"
	"github.com/getmockd/gqlprobe/pkg/schema"
)

const endpoint = "https://api.example/graphql"

func sampleResults() []probe.Result {
	return []probe.Result{
		{
			URL: endpoint, Operation: "query.me", Kind: schema.RootQuery, Query: "{ me { id } }",
			StatusCode: 200, Attempts: 1, Outcome: probe.OutcomeSuccess, BodyExcerpt: `{"data":{"me":{"id":"1"}}}`,
		},
		{
			URL: endpoint, Operation: "query.me.email", Kind: schema.RootQuery, Query: "{ me { email } }",
			StatusCode: 200, Attempts: 1, Outcome: probe.OutcomePII, SensitiveKeys: []string{"email"},
		},
		{
			URL: endpoint, Operation: "query.user", Kind: schema.RootQuery, Query: `{ user(id: "123") { id } }`,
			StatusCode: 502, Attempts: 1, Outcome: probe.OutcomeHTTPError,
			ArgsUsed: map[string]any{"id": "123"}, BodyExcerpt: "bad gateway",
		},
		{
			URL: endpoint, Operation: "query.slow", Kind: schema.RootQuery, Query: "{ slow }",
			Attempts: 3, Outcome: probe.OutcomeTransportError, Err: "connection refused",
		},
		{
			URL: endpoint, Operation: "mutation.reset", Kind: schema.RootMutation, Query: "mutation { reset }",
			StatusCode: 200, Attempts: 2, Outcome: probe.OutcomeGraphQLError,
		},
	}
}

var sampleMatch = pii.FieldMatch{
	TypeName: "User", FieldName: "email", Type: schema.Named(schema.KindScalar, "String"),
	Category: pii.CategoryContact, Keyword: "email", Severity: pii.SeverityMedium,
}

// replay drives a sink through one endpoint.
func replay(s engine.Sink) {
	s.Begin(endpoint)
	s.PIIMatch(endpoint, sampleMatch)
	s.Skipped(endpoint, engine.Skipped{Operation: "query.broken", Reason: "schema malformed"})
	results := sampleResults()
	for _, r := range results {
		s.Result(r)
	}
	s.End(&engine.EndpointReport{
		URL: endpoint, Operations: len(results), Results: results,
		Skipped:  []engine.Skipped{{Operation: "query.broken"}},
		Duration: 1500 * time.Millisecond,
	})
}

func TestCurlCommand(t *testing.T) {
	got := CurlCommand(endpoint, `{ user(id: "123") { id } }`)
	assert.Equal(t,
		`curl -k -X POST 'https://api.example/graphql' -H 'Content-Type: application/json' -H 'User-Agent: Mozilla/5.0' --data '{"query":"{ user(id: \"123\") { id } }"}'`,
		got)

	got = CurlCommand(endpoint, `{ a(s: "it's <b>") }`)
	assert.True(t, strings.HasSuffix(got, `--data '{"query":"{ a(s: \"it'\''s <b>\") }"}'`), got)
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, WithCurl())
	replay(c)
	c.End(&engine.EndpointReport{URL: "https://down.example", Err: introspection.ErrSchemaFetch})
	require.NoError(t, c.Close())

	want := strings.Join([]string{
		"[+] Processing URL: https://api.example/graphql",
		"[*] https://api.example/graphql PII candidate User.email (contact, medium)",
		"[-] https://api.example/graphql query.broken skipped: schema malformed",
		"[+] https://api.example/graphql query.me -> 200 (Attempts: 1)",
		"    PoC: " + CurlCommand(endpoint, "{ me { id } }"),
		"[+] https://api.example/graphql query.me.email -> 200 [pii: email] (Attempts: 1)",
		"    PoC: " + CurlCommand(endpoint, "{ me { email } }"),
		"[!] https://api.example/graphql query.user -> 502 (Attempts: 1)",
		`    Args used: {"id":"123"}`,
		`    Query: { user(id: "123") { id } }`,
		"    Response: bad gateway",
		"[!] https://api.example/graphql query.slow -> ERROR after 3 attempts: connection refused",
		"    Query: { slow }",
		"[!] https://api.example/graphql mutation.reset -> 200 [graphql error] (Attempts: 2)",
		"[+] https://api.example/graphql: 5 operations, 1 skipped in 1.5s",
		"[!] Introspection failed for https://down.example: schema fetch failed",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

type failingWriter struct{ writes int }

func (f *failingWriter) Write([]byte) (int, error) {
	f.writes++
	return 0, errors.New("disk full")
}

func TestConsole_StickyError(t *testing.T) {
	w := &failingWriter{}
	c := NewConsole(w)
	replay(c)
	assert.EqualError(t, c.Close(), "disk full")
	assert.Equal(t, 1, w.writes)
}

func TestJSONL(t *testing.T) {
	var buf bytes.Buffer
	j := NewJSONL(&buf, "01RUN")
	replay(j)
	require.NoError(t, j.Close())

	var records []Record
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var rec Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec), sc.Text())
		records = append(records, rec)
	}
	require.Len(t, records, 5)

	first := records[0]
	assert.Equal(t, "01RUN", first.RunID)
	assert.Equal(t, "query.me", first.Operation)
	assert.Equal(t, 200, first.StatusCode)
	assert.Equal(t, CurlCommand(endpoint, "{ me { id } }"), first.Curl)

	assert.Equal(t, []string{"email"}, records[1].SensitiveKeys)
	assert.Equal(t, map[string]any{"id": "123"}, records[2].ArgsUsed)
	assert.Empty(t, records[2].Curl)
	assert.Equal(t, "connection refused", records[3].Err)
	assert.Zero(t, records[3].StatusCode)
}

func TestCreateJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	j, err := CreateJSONL(path, "run")
	require.NoError(t, err)
	replay(j)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	_, err = CreateJSONL(filepath.Join(t.TempDir(), "missing", "out.jsonl"), "run")
	assert.Error(t, err)
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.db")
	s, err := OpenSQLite(path, "01RUNA")
	require.NoError(t, err)
	replay(s)
	s.Begin("https://down.example")
	s.End(&engine.EndpointReport{URL: "https://down.example", Err: introspection.ErrSchemaFetch})
	require.NoError(t, s.Close())

	// A second run appends to the same file.
	s2, err := OpenSQLite(path, "01RUNB")
	require.NoError(t, err)
	s2.Begin(endpoint)
	s2.Result(sampleResults()[0])
	require.NoError(t, s2.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var runs int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&runs))
	assert.Equal(t, 2, runs)

	var endpoints, failed int
	var finished sql.NullString
	require.NoError(t, db.QueryRow(`SELECT endpoints, failed_endpoints, finished_at FROM runs WHERE id = ?`, "01RUNA").
		Scan(&endpoints, &failed, &finished))
	assert.Equal(t, 2, endpoints)
	assert.Equal(t, 1, failed)
	assert.True(t, finished.Valid)

	rows, err := db.Query(`SELECT operation, outcome, status, args, error FROM results WHERE run_id = ? ORDER BY id`, "01RUNA")
	require.NoError(t, err)
	defer rows.Close()
	type row struct {
		op, outcome string
		status      sql.NullInt64
		args, err   sql.NullString
	}
	var got []row
	for rows.Next() {
		var r row
		require.NoError(t, rows.Scan(&r.op, &r.outcome, &r.status, &r.args, &r.err))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 5)
	assert.Equal(t, row{op: "query.me", outcome: "success", status: sql.NullInt64{Int64: 200, Valid: true}}, got[0])
	assert.Equal(t, `{"id":"123"}`, got[2].args.String)
	assert.False(t, got[3].status.Valid)
	assert.Equal(t, "connection refused", got[3].err.String)

	var category, fieldType string
	require.NoError(t, db.QueryRow(`SELECT category, field_type FROM pii_matches WHERE run_id = ?`, "01RUNA").
		Scan(&category, &fieldType))
	assert.Equal(t, "contact", category)
	assert.Equal(t, "String", fieldType)
}

func TestSQLite_StartedAtFromRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.db")
	runID := id.RunID()
	want, err := id.RunTime(runID)
	require.NoError(t, err)

	s, err := OpenSQLite(path, runID)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	s, err = OpenSQLite(path, "adhoc")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var started time.Time
	require.NoError(t, db.QueryRow(`SELECT started_at FROM runs WHERE id = ?`, runID).Scan(&started))
	assert.WithinDuration(t, want, started, time.Millisecond)

	require.NoError(t, db.QueryRow(`SELECT started_at FROM runs WHERE id = ?`, "adhoc").Scan(&started))
	assert.WithinDuration(t, time.Now(), started, time.Minute)
}

func TestOpenSQLite_BadPath(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "missing", "scan.db"), "run")
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	s := NewSummary(&buf, false)
	replay(s)
	s.Begin("https://down.example")
	s.End(&engine.EndpointReport{URL: "https://down.example", Err: introspection.ErrSchemaFetch})

	d := s.Data()
	assert.Equal(t, 2, d.Endpoints)
	assert.Equal(t, 1, d.FailedEndpoints)
	assert.Equal(t, 5, d.Attempted)
	assert.Equal(t, 1, d.Skipped)
	assert.Equal(t, 1, d.PIIMatches)
	assert.Equal(t, map[string]int{"200": 3, "502": 1}, d.StatusDistribution)
	assert.Equal(t, 1, d.Outcomes[probe.OutcomeTransportError])

	require.NoError(t, s.Close())
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "[+] Done. Total requests attempted: 5\n[+] Status code distribution: {200: 3, 502: 1}\n"), out)

	jsonStart := strings.Index(out, "{\n")
	require.GreaterOrEqual(t, jsonStart, 0)
	var doc map[string]SummaryData
	require.NoError(t, json.Unmarshal([]byte(out[jsonStart:]), &doc))
	assert.Equal(t, d, doc["summary"])
}

func TestSummary_JSONOnly(t *testing.T) {
	var buf bytes.Buffer
	s := NewSummary(&buf, true)
	require.NoError(t, s.Close())

	var doc map[string]SummaryData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 0, doc["summary"].Attempted)
	assert.Empty(t, doc["summary"].StatusDistribution)
}
