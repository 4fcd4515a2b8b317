package report

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/getmockd/gqlprobe/pkg/engine"
	"github.com/getmockd/gqlprobe/pkg/pii"
	"github.com/getmockd/gqlprobe/pkg/probe"
)

// stickyWriter remembers the first write error and drops everything after it.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (s *stickyWriter) printf(format string, args ...any) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.w, format, args...)
}

// Console prints one line per event, the way an operator reads a scan:
// [+] for working operations, [!] for failures, [-] for skipped ones and [*]
// for PII candidates. Failed probes are followed by the query, the arguments
// and the response excerpt.
type Console struct {
	out  *stickyWriter
	curl bool
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithCurl prints a curl command under every working operation.
func WithCurl() ConsoleOption {
	return func(c *Console) { c.curl = true }
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{out: &stickyWriter{w: w}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin implements engine.Sink.
func (c *Console) Begin(url string) {
	c.out.printf("[+] Processing URL: %s\n", url)
}

// Result implements engine.Sink.
func (c *Console) Result(r probe.Result) {
	if r.Outcome == probe.OutcomeTransportError {
		c.out.printf("[!] %s %s -> ERROR after %d attempts: %s\n", r.URL, r.Operation, r.Attempts, r.Err)
		c.details(r, false)
		return
	}

	symbol := "[+]"
	if !r.Outcome.Succeeded() {
		symbol = "[!]"
	}
	c.out.printf("%s %s %s -> %d%s (Attempts: %d)\n", symbol, r.URL, r.Operation, r.StatusCode, tag(r), r.Attempts)

	switch {
	case r.StatusCode != http.StatusOK:
		c.details(r, true)
	case c.curl && r.Outcome.Succeeded():
		c.out.printf("    PoC: %s\n", CurlCommand(r.URL, r.Query))
	}
}

func tag(r probe.Result) string {
	switch r.Outcome {
	case probe.OutcomePII:
		return " [pii: " + strings.Join(r.SensitiveKeys, ", ") + "]"
	case probe.OutcomeGraphQLError:
		return " [graphql error]"
	default:
		return ""
	}
}

func (c *Console) details(r probe.Result, response bool) {
	if len(r.ArgsUsed) > 0 {
		args, _ := json.Marshal(r.ArgsUsed)
		c.out.printf("    Args used: %s\n", args)
	}
	if r.Query != "" {
		c.out.printf("    Query: %s\n", r.Query)
	}
	if response && r.BodyExcerpt != "" {
		c.out.printf("    Response: %s\n", r.BodyExcerpt)
	}
}

// Skipped implements engine.Sink.
func (c *Console) Skipped(url string, s engine.Skipped) {
	c.out.printf("[-] %s %s skipped: %s\n", url, s.Operation, s.Reason)
}

// PIIMatch implements engine.Sink.
func (c *Console) PIIMatch(url string, m pii.FieldMatch) {
	c.out.printf("[*] %s PII candidate %s.%s (%s, %s)\n", url, m.TypeName, m.FieldName, m.Category, m.Severity)
}

// End implements engine.Sink.
func (c *Console) End(r *engine.EndpointReport) {
	if r.Err != nil {
		c.out.printf("[!] Introspection failed for %s: %v\n", r.URL, r.Err)
		return
	}
	c.out.printf("[+] %s: %d operations, %d skipped in %s\n",
		r.URL, r.Operations, len(r.Skipped), r.Duration.Round(time.Millisecond))
}

// Close implements engine.Sink.
func (c *Console) Close() error {
	return c.out.err
}

var _ engine.Sink = (*Console)(nil)
