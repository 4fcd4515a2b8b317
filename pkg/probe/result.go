package probe

import (
	"time"
	"unicode/utf8"

	"github.com/getmockd/gqlprobe/pkg/schema"
	"github.com/getmockd/gqlprobe/pkg/synth"
)

// ExcerptLimit is the number of body bytes kept in Result.BodyExcerpt.
const ExcerptLimit = 200

// Outcome classifies a finished probe.
type Outcome string

// Probe outcomes.
const (
	OutcomeSuccess        Outcome = "success"
	OutcomePII            Outcome = "pii"
	OutcomeGraphQLError   Outcome = "graphql_error"
	OutcomeHTTPError      Outcome = "http_error"
	OutcomeTransportError Outcome = "transport_error"
)

// Succeeded reports whether the outcome counts as a working operation.
func (o Outcome) Succeeded() bool {
	return o == OutcomeSuccess || o == OutcomePII
}

// Request is one probe to run. It is never mutated by the executor.
type Request struct {
	Label    string
	Kind     schema.RootKind
	Query    string
	ArgsUsed map[string]any
}

// FromDocument converts a synthesized document into a Request.
func FromDocument(doc synth.Document) Request {
	return Request{
		Label:    doc.Label,
		Kind:     doc.Kind,
		Query:    doc.Query,
		ArgsUsed: doc.Args.Map(),
	}
}

// Result is the terminal record of one Request. StatusCode and Err are never both set.
type Result struct {
	URL           string          `json:"url"`
	Operation     string          `json:"operation"`
	Kind          schema.RootKind `json:"kind"`
	Query         string          `json:"query"`
	StatusCode    int             `json:"status,omitempty"`
	ContentType   string          `json:"content_type,omitempty"`
	BodyExcerpt   string          `json:"response,omitempty"`
	Err           string          `json:"error,omitempty"`
	ArgsUsed      map[string]any  `json:"args_used,omitempty"`
	Attempts      int             `json:"attempts"`
	Outcome       Outcome         `json:"outcome"`
	SensitiveKeys []string        `json:"sensitive_keys,omitempty"`
	Duration      time.Duration   `json:"duration_ns"`
}

// excerpt returns at most ExcerptLimit bytes of body, cut on a rune boundary.
func excerpt(body []byte) string {
	if len(body) <= ExcerptLimit {
		return string(body)
	}
	cut := ExcerptLimit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut])
}
