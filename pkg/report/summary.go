package report

import (
	"encoding/json"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/getmockd/gqlprobe/pkg/engine"
	"github.com/getmockd/gqlprobe/pkg/pii"
	"github.com/getmockd/gqlprobe/pkg/probe"
)

// SummaryData is the end-of-run tally.
type SummaryData struct {
	Endpoints          int                   `json:"endpoints"`
	FailedEndpoints    int                   `json:"failed_endpoints"`
	Attempted          int                   `json:"total_operations_attempted"`
	Skipped            int                   `json:"skipped_operations"`
	PIIMatches         int                   `json:"pii_candidates"`
	StatusDistribution map[string]int        `json:"status_distribution"`
	Outcomes           map[probe.Outcome]int `json:"outcomes"`
}

// Summary tallies the run and writes the totals when closed. Transport errors
// have no status and are left out of the status distribution.
type Summary struct {
	out    *stickyWriter
	asJSON bool
	data   SummaryData
}

// NewSummary returns a Summary writing to w. With asJSON only the JSON document
// is written.
func NewSummary(w io.Writer, asJSON bool) *Summary {
	return &Summary{
		out:    &stickyWriter{w: w},
		asJSON: asJSON,
		data: SummaryData{
			StatusDistribution: make(map[string]int),
			Outcomes:           make(map[probe.Outcome]int),
		},
	}
}

// Data returns a copy of the current tally.
func (s *Summary) Data() SummaryData {
	d := s.data
	d.StatusDistribution = maps.Clone(s.data.StatusDistribution)
	d.Outcomes = maps.Clone(s.data.Outcomes)
	return d
}

// Begin implements engine.Sink.
func (s *Summary) Begin(string) { s.data.Endpoints++ }

// Result implements engine.Sink.
func (s *Summary) Result(r probe.Result) {
	s.data.Attempted++
	s.data.Outcomes[r.Outcome]++
	if r.StatusCode != 0 {
		s.data.StatusDistribution[strconv.Itoa(r.StatusCode)]++
	}
}

// Skipped implements engine.Sink.
func (s *Summary) Skipped(string, engine.Skipped) { s.data.Skipped++ }

// PIIMatch implements engine.Sink.
func (s *Summary) PIIMatch(string, pii.FieldMatch) { s.data.PIIMatches++ }

// End implements engine.Sink.
func (s *Summary) End(r *engine.EndpointReport) {
	if r.Err != nil {
		s.data.FailedEndpoints++
	}
}

// Close writes the summary.
func (s *Summary) Close() error {
	if !s.asJSON {
		s.out.printf("[+] Done. Total requests attempted: %d\n", s.data.Attempted)
		s.out.printf("[+] Status code distribution: %s\n", distribution(s.data.StatusDistribution))
	}
	doc, err := json.MarshalIndent(map[string]SummaryData{"summary": s.data}, "", "  ")
	if err != nil {
		return err
	}
	s.out.printf("%s\n", doc)
	return s.out.err
}

// distribution renders counts as {200: 3, 404: 1} in status order.
func distribution(counts map[string]int) string {
	codes := slices.Collect(maps.Keys(counts))
	slices.SortFunc(codes, func(a, b string) int {
		x, _ := strconv.Atoi(a)
		y, _ := strconv.Atoi(b)
		return x - y
	})
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = c + ": " + strconv.Itoa(counts[c])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

var _ engine.Sink = (*Summary)(nil)
