package probe

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/getmockd/gqlprobe/pkg/logging"
	"github.com/getmockd/gqlprobe/pkg/metrics"
	"github.com/getmockd/gqlprobe/pkg/transport"
)

// Defaults applied by NewExecutor.
const (
	DefaultConcurrency = 10
	DefaultMaxRetries  = 3
	DefaultBackoff     = time.Second
)

// Config configures an Executor.
type Config struct {
	// Concurrency caps in-flight HTTP calls. Zero means DefaultConcurrency.
	Concurrency int

	// Workers is the number of tasks scheduled at once. Zero means 2*Concurrency.
	Workers int

	// MaxRetries is the number of extra attempts after a transport failure.
	// Negative means DefaultMaxRetries; zero disables retries.
	MaxRetries int

	// Backoff is the fixed delay between attempts. Zero means DefaultBackoff.
	Backoff time.Duration

	// Limiter, if set, paces attempts. Each attempt waits for it before
	// taking an admission permit.
	Limiter Limiter

	Headers    transport.Headers
	Classifier *Classifier

	// OnResult, if set, is called for every result as it completes. Calls are
	// serialized with the result collector, so the callback need not lock.
	OnResult func(Result)

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *metrics.Probe
}

// Limiter paces outgoing requests. *ratelimit.Bucket implements it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Executor runs probe requests.
type Executor struct {
	client      *http.Client
	concurrency int
	workers     int
	maxRetries  int
	backoff     time.Duration
	limiter     Limiter
	headers     transport.Headers
	classifier  *Classifier
	onResult    func(Result)
	log         *slog.Logger
	tracer      trace.Tracer
	metrics     *metrics.Probe
}

// NewExecutor returns an Executor that sends requests with client.
func NewExecutor(client *http.Client, cfg Config) *Executor {
	if client == nil {
		client = http.DefaultClient
	}
	e := &Executor{
		client:      client,
		concurrency: cfg.Concurrency,
		workers:     cfg.Workers,
		maxRetries:  cfg.MaxRetries,
		backoff:     cfg.Backoff,
		limiter:     cfg.Limiter,
		headers:     cfg.Headers,
		classifier:  cfg.Classifier,
		onResult:    cfg.OnResult,
		log:         logging.OrNop(cfg.Logger),
		tracer:      cfg.Tracer,
		metrics:     cfg.Metrics,
	}
	if e.concurrency <= 0 {
		e.concurrency = DefaultConcurrency
	}
	if e.workers <= 0 {
		e.workers = 2 * e.concurrency
	}
	if e.maxRetries < 0 {
		e.maxRetries = DefaultMaxRetries
	}
	if e.backoff <= 0 {
		e.backoff = DefaultBackoff
	}
	if e.classifier == nil {
		e.classifier = &Classifier{}
	}
	if e.tracer == nil {
		e.tracer = noop.NewTracerProvider().Tracer("gqlprobe/probe")
	}
	return e
}

// Execute runs every request against endpoint and returns one Result per request,
// in completion order. Cancelling ctx stops waiting tasks; they still produce a
// transport_error result.
func (e *Executor) Execute(ctx context.Context, endpoint string, reqs []Request) []Result {
	gate := semaphore.NewWeighted(int64(e.concurrency))
	c := &collector{results: make([]Result, 0, len(reqs)), onResult: e.onResult}

	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for _, req := range reqs {
		g.Go(func() error {
			c.add(e.run(ctx, gate, endpoint, req))
			return nil
		})
	}
	_ = g.Wait()

	return c.results
}

// collector appends results under a mutex.
type collector struct {
	mu       sync.Mutex
	results  []Result
	onResult func(Result)
}

func (c *collector) add(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
	if c.onResult != nil {
		c.onResult(r)
	}
}

// run drives the attempts for one request. Attempts are strictly sequential.
func (e *Executor) run(ctx context.Context, gate *semaphore.Weighted, endpoint string, req Request) Result {
	start := time.Now()
	res := Result{
		URL:       endpoint,
		Operation: req.Label,
		Kind:      req.Kind,
		Query:     req.Query,
		ArgsUsed:  req.ArgsUsed,
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxRetries+1; attempt++ {
		res.Attempts = attempt

		resp, err := e.attempt(ctx, gate, endpoint, req, attempt)
		if err == nil {
			res.StatusCode = resp.StatusCode
			res.ContentType = resp.ContentType
			res.BodyExcerpt = excerpt(resp.Body)
			res.Outcome, res.SensitiveKeys = e.classifier.Classify(resp.StatusCode, resp.ContentType, resp.Body)
			break
		}

		lastErr = err
		if ctx.Err() != nil || attempt > e.maxRetries {
			break
		}
		e.log.Debug("probe attempt failed, retrying",
			"operation", req.Label,
			"attempt", attempt,
			"error", err,
		)
		if !sleep(ctx, e.backoff) {
			lastErr = errors.Join(lastErr, ctx.Err())
			break
		}
	}

	if res.StatusCode == 0 {
		res.Outcome = OutcomeTransportError
		res.Err = lastErr.Error()
	}
	res.Duration = time.Since(start)
	e.metrics.Finished(string(req.Kind), string(res.Outcome), res.Duration.Seconds())
	return res
}

// attempt performs one HTTP call while holding an admission permit.
func (e *Executor) attempt(ctx context.Context, gate *semaphore.Weighted, endpoint string, req Request, n int) (*transport.Response, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if err := gate.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer gate.Release(1)
	e.metrics.Acquired()
	defer e.metrics.Released()
	e.metrics.Attempt(string(req.Kind))

	ctx, span := e.tracer.Start(ctx, "probe "+req.Label, trace.WithAttributes(
		attribute.String("graphql.operation", req.Label),
		attribute.String("http.url", endpoint),
		attribute.Int("probe.attempt", n),
	))
	defer span.End()

	resp, err := transport.PostQuery(ctx, e.client, endpoint, req.Query, e.headers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	return resp, nil
}

// sleep waits for d or until ctx is done. It reports whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
