package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/getmockd/gqlprobe/pkg/introspection"
	"github.com/getmockd/gqlprobe/pkg/logging"
	"github.com/getmockd/gqlprobe/pkg/metrics"
	"github.com/getmockd/gqlprobe/pkg/pii"
	"github.com/getmockd/gqlprobe/pkg/probe"
	"github.com/getmockd/gqlprobe/pkg/schema"
	"github.com/getmockd/gqlprobe/pkg/synth"
	"github.com/getmockd/gqlprobe/pkg/transport"
)

// ErrNoEndpoints is returned by Scan when there is nothing to probe.
var ErrNoEndpoints = errors.New("no endpoints to scan")

// Config configures a Scanner.
type Config struct {
	Mode   Mode
	Filter Filter

	// Synth tunes argument values and selection depth.
	Synth synth.Options

	// MaxPath bounds the field chain used to reach PII candidates.
	MaxPath int

	// Probe configures the executor. Classifier and OnResult are set by the
	// Scanner; Logger, Tracer and Metrics default to the Scanner's.
	Probe probe.Config

	// SuccessRule replaces the default success test, see probe.WithSuccessRule.
	SuccessRule string

	// Taxonomy classifies field names and response keys. Nil means the default.
	Taxonomy *pii.Taxonomy

	Headers transport.Headers
	Sinks   []Sink

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *metrics.Probe
}

// Scanner probes endpoints one after another.
type Scanner struct {
	mode     Mode
	filter   Filter
	synth    synth.Options
	maxPath  int
	taxonomy *pii.Taxonomy

	fetcher  *introspection.Client
	executor *probe.Executor
	sinks    *Fanout

	log     *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Probe
}

// New returns a Scanner sending requests with client.
func New(client *http.Client, cfg Config) (*Scanner, error) {
	if cfg.Mode == "" {
		cfg.Mode = ModeChecker
	}
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	if err := cfg.Filter.Validate(); err != nil {
		return nil, err
	}

	s := &Scanner{
		mode:     cfg.Mode,
		filter:   cfg.Filter,
		synth:    cfg.Synth,
		maxPath:  cfg.MaxPath,
		taxonomy: cfg.Taxonomy,
		sinks:    NewFanout(cfg.Sinks...),
		log:      logging.OrNop(cfg.Logger),
		tracer:   cfg.Tracer,
		metrics:  cfg.Metrics,
	}
	if s.taxonomy == nil {
		s.taxonomy = pii.DefaultTaxonomy()
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("gqlprobe/engine")
	}

	var opts []probe.ClassifierOption
	if s.mode.pii() {
		opts = append(opts, probe.WithSensitiveKeys(s.taxonomy))
	}
	if cfg.SuccessRule != "" {
		opts = append(opts, probe.WithSuccessRule(cfg.SuccessRule))
	}
	classifier, err := probe.NewClassifier(opts...)
	if err != nil {
		return nil, err
	}

	pc := cfg.Probe
	pc.Classifier = classifier
	pc.OnResult = s.sinks.Result
	pc.Headers = cfg.Headers
	if pc.Logger == nil {
		pc.Logger = s.log
	}
	if pc.Tracer == nil {
		pc.Tracer = s.tracer
	}
	if pc.Metrics == nil {
		pc.Metrics = s.metrics
	}
	s.executor = probe.NewExecutor(client, pc)
	s.fetcher = introspection.NewClient(client,
		introspection.WithHeaders(cfg.Headers),
		introspection.WithLogger(s.log),
	)
	return s, nil
}

// Scan probes endpoints in order. An endpoint that fails does not stop the batch;
// a cancelled context does, and the reports gathered so far are returned with
// the context's error.
func (s *Scanner) Scan(ctx context.Context, endpoints []string) ([]*EndpointReport, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	reports := make([]*EndpointReport, 0, len(endpoints))
	for _, url := range endpoints {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		reports = append(reports, s.ScanEndpoint(ctx, url))
	}
	return reports, ctx.Err()
}

// ScanEndpoint runs the whole pipeline against one endpoint.
func (s *Scanner) ScanEndpoint(ctx context.Context, url string) *EndpointReport {
	start := time.Now()
	report := &EndpointReport{URL: url}

	ctx, span := s.tracer.Start(ctx, "scan "+url, trace.WithAttributes(
		attribute.String("gqlprobe.endpoint", url),
		attribute.String("gqlprobe.mode", string(s.mode)),
	))
	defer span.End()

	s.sinks.Begin(url)
	defer func() {
		report.Duration = time.Since(start)
		s.sinks.End(report)
	}()

	sch, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.metrics.SchemaFetch("error")
		s.log.Warn("schema fetch failed", "url", url, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "schema fetch failed")
		report.Err = err
		return report
	}
	s.metrics.SchemaFetch("ok")
	report.Types = sch.Len()
	if n := sch.Duplicates(); n > 0 {
		s.log.Debug("duplicate type definitions dropped", "url", url, "count", n)
	}

	reqs := s.plan(url, sch, report)
	report.Operations = len(reqs)
	span.SetAttributes(attribute.Int("gqlprobe.operations", len(reqs)))
	s.log.Info("probing endpoint", "url", url, "operations", len(reqs), "skipped", len(report.Skipped))

	report.Results = s.executor.Execute(ctx, url, reqs)
	report.sortResults()
	return report
}

// plan synthesizes every request for sch. Documents that cannot be built are
// recorded as skipped; identical documents are sent once.
func (s *Scanner) plan(url string, sch *schema.Schema, report *EndpointReport) []probe.Request {
	docs := synth.NewDocuments(sch, s.synth)
	seen := make(map[string]bool)
	var reqs []probe.Request

	add := func(label string, doc synth.Document, err error) {
		if err != nil {
			sk := Skipped{Operation: label, Reason: err.Error()}
			report.Skipped = append(report.Skipped, sk)
			s.sinks.Skipped(url, sk)
			s.log.Debug("operation skipped", "url", url, "operation", label, "error", err)
			return
		}
		if seen[doc.Query] {
			return
		}
		seen[doc.Query] = true
		reqs = append(reqs, probe.FromDocument(doc))
	}

	if s.mode.checker() {
		for _, op := range Operations(sch) {
			label := op.Label()
			if !s.filter.Allows(label) {
				continue
			}
			doc, err := docs.Build(op.Kind, op.Field)
			add(label, doc, err)
		}
	}

	if s.mode.pii() {
		planner := pii.NewPlanner(sch, docs, s.maxPath)
		for _, m := range s.taxonomy.FindCandidateFields(sch) {
			report.PIIMatches = append(report.PIIMatches, m)
			s.sinks.PIIMatch(url, m)

			doc, err := planner.Plan(m)
			label := fmt.Sprintf("%s.%s", m.TypeName, m.FieldName)
			if err == nil {
				label = doc.Label
			}
			if !s.filter.Allows(label) {
				continue
			}
			add(label, doc, err)
		}
	}
	return reqs
}

// Close closes the sinks.
func (s *Scanner) Close() error {
	return s.sinks.Close()
}
