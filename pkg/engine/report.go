package engine

import (
	"cmp"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/getmockd/gqlprobe/pkg/pii"
	"github.com/getmockd/gqlprobe/pkg/probe"
)

// Skipped is an operation that was not probed.
type Skipped struct {
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
}

// EndpointReport collects everything learned about one endpoint.
type EndpointReport struct {
	URL string `json:"url"`

	// Err is set when the schema could not be fetched. No operation was probed.
	Err error `json:"-"`

	Types      int              `json:"types"`
	Operations int              `json:"operations"`
	Skipped    []Skipped        `json:"skipped,omitempty"`
	Results    []probe.Result   `json:"results"`
	PIIMatches []pii.FieldMatch `json:"pii_matches,omitempty"`
	Duration   time.Duration    `json:"duration_ns"`
}

// Outcomes counts results per outcome.
func (r *EndpointReport) Outcomes() map[probe.Outcome]int {
	out := make(map[probe.Outcome]int)
	for _, res := range r.Results {
		out[res.Outcome]++
	}
	return out
}

// sortResults orders results by operation label. The executor returns them in
// completion order.
func (r *EndpointReport) sortResults() {
	slices.SortStableFunc(r.Results, func(a, b probe.Result) int {
		return cmp.Compare(a.Operation, b.Operation)
	})
}

// Sink receives the scan as it happens. Calls are serialized by Fanout.
type Sink interface {
	Begin(url string)
	Result(r probe.Result)
	Skipped(url string, s Skipped)
	PIIMatch(url string, m pii.FieldMatch)
	End(r *EndpointReport)
	Close() error
}

// Fanout forwards every event to each sink in order while holding a mutex, so
// sinks never see concurrent calls.
type Fanout struct {
	mu    sync.Mutex
	sinks []Sink
}

// NewFanout returns a Fanout over sinks. Nil sinks are ignored.
func NewFanout(sinks ...Sink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *Fanout) each(fn func(Sink)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sinks {
		fn(s)
	}
}

// Begin implements Sink.
func (f *Fanout) Begin(url string) { f.each(func(s Sink) { s.Begin(url) }) }

// Result implements Sink.
func (f *Fanout) Result(r probe.Result) { f.each(func(s Sink) { s.Result(r) }) }

// Skipped implements Sink.
func (f *Fanout) Skipped(url string, sk Skipped) { f.each(func(s Sink) { s.Skipped(url, sk) }) }

// PIIMatch implements Sink.
func (f *Fanout) PIIMatch(url string, m pii.FieldMatch) { f.each(func(s Sink) { s.PIIMatch(url, m) }) }

// End implements Sink.
func (f *Fanout) End(r *EndpointReport) { f.each(func(s Sink) { s.End(r) }) }

// Close closes every sink and joins their errors.
func (f *Fanout) Close() error {
	var errs []error
	f.each(func(s Sink) {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

var _ Sink = (*Fanout)(nil)
