// Package target serves a GraphQL endpoint built from SDL with fabricated data.
// It gives the prober something realistic to run against locally and in tests:
// introspection is answered from the schema, root fields return data shaped by
// the selection set, and individual fields can be made to fail.
package target

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getmockd/gqlprobe/pkg/logging"
	"github.com/getmockd/gqlprobe/pkg/metrics"
	"github.com/getmockd/gqlprobe/pkg/ratelimit"
	"github.com/getmockd/gqlprobe/pkg/tracing"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestBodySize caps the request body read by the server.
const MaxRequestBodySize = 1 << 20

// ErrInvalidSchema is returned when the SDL cannot be loaded.
var ErrInvalidSchema = errors.New("invalid schema")

// Request is the POST body of a GraphQL request.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Error is a single GraphQL error entry.
type Error struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// Response is the JSON envelope returned to clients.
type Response struct {
	Data   any     `json:"data"`
	Errors []Error `json:"errors,omitempty"`
}

// Option configures a Server.
type Option func(*Server)

// WithLatency delays every response by d.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.latency = d }
}

// WithLogger sets the server's logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = logging.OrNop(log) }
}

// WithMetrics counts served requests in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Server) {
		s.requestsTotal = reg.NewCounter("gqlprobe_target_requests_total",
			"Requests answered by the mock target", "operation", "status")
	}
}

// WithRateLimit answers 429 once more than rate requests per second arrive,
// allowing bursts of up to burst requests.
func WithRateLimit(rate float64, burst int) Option {
	return func(s *Server) {
		if rate > 0 {
			s.limiter = ratelimit.NewBucket(rate, burst)
		}
	}
}

// Server is an http.Handler answering GraphQL requests against a loaded schema.
type Server struct {
	schema        *ast.Schema
	latency       time.Duration
	log           *slog.Logger
	requestsTotal *metrics.Counter
	limiter       *ratelimit.Bucket

	mu       sync.RWMutex
	failures map[string]int

	requests    atomic.Int64
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

// New loads sdl and returns a Server for it.
func New(sdl string, opts ...Option) (*Server, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	s := &Server{
		schema:   schema,
		log:      logging.Nop(),
		failures: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromFile loads the SDL at path.
func NewFromFile(path string, opts ...Option) (*Server, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	return New(string(data), opts...)
}

// FailField makes every request selecting the root field name fail. A status of
// 200 answers with a GraphQL error; any other status is sent as the HTTP status.
func (s *Server) FailField(name string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[name] = status
}

// Requests returns the number of requests received.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// MaxInFlight returns the highest number of requests handled at the same time.
func (s *Server) MaxInFlight() int64 {
	return s.maxInFlight.Load()
}

// ServeHTTP answers GET and POST GraphQL requests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.maxInFlight.Load()
		if n <= peak || s.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	if s.limiter != nil && !s.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		s.write(w, "unknown", http.StatusTooManyRequests, &Response{Errors: []Error{{Message: "rate limit exceeded"}}})
		return
	}

	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-r.Context().Done():
			return
		}
	}

	var (
		req *Request
		err error
	)
	switch r.Method {
	case http.MethodGet:
		req, err = parseGet(r)
	case http.MethodPost:
		req, err = parsePost(r)
	default:
		s.write(w, "unknown", http.StatusMethodNotAllowed, &Response{Errors: []Error{{Message: "method not allowed"}}})
		return
	}
	if err != nil {
		s.write(w, "unknown", http.StatusBadRequest, &Response{Errors: []Error{{Message: err.Error()}}})
		return
	}

	ctx := tracing.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		s.log.Debug("traced request", "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	}

	status, resp, kind := s.execute(ctx, req)
	s.write(w, kind, status, resp)
}

func (s *Server) execute(_ context.Context, req *Request) (int, *Response, string) {
	if strings.TrimSpace(req.Query) == "" {
		return http.StatusOK, &Response{Errors: []Error{{Message: "query is required"}}}, "unknown"
	}

	doc, errs := gqlparser.LoadQuery(s.schema, req.Query)
	if len(errs) > 0 {
		return http.StatusOK, &Response{Errors: []Error{{Message: errs[0].Message}}}, "unknown"
	}

	op := doc.Operations.ForName(req.OperationName)
	if req.OperationName == "" && len(doc.Operations) > 0 {
		op = doc.Operations[0]
	}
	if op == nil {
		return http.StatusOK, &Response{Errors: []Error{{Message: fmt.Sprintf("operation %q not found", req.OperationName)}}}, "unknown"
	}

	var root *ast.Definition
	switch op.Operation {
	case ast.Query:
		root = s.schema.Query
	case ast.Mutation:
		root = s.schema.Mutation
	}
	if root == nil {
		return http.StatusOK, &Response{Errors: []Error{{Message: "unsupported operation type " + string(op.Operation)}}}, string(op.Operation)
	}
	kind := string(op.Operation)

	fields := collect(doc, op.SelectionSet, nil)
	if status, field, failed := s.failure(fields); failed {
		s.log.Debug("injected failure", "field", field, "status", status)
		resp := &Response{Errors: []Error{{Message: "injected failure", Path: []any{field}}}}
		return status, resp, kind
	}

	in := &introspector{schema: s.schema, doc: doc}
	res := &resolver{schema: s.schema, doc: doc}
	data := make(map[string]any)
	for _, f := range fields {
		key := responseKey(f)
		switch f.Name {
		case "__schema":
			data[key] = in.schemaInfo(f.SelectionSet)
		case "__type":
			name, _ := argument(f, "name", req.Variables).(string)
			data[key] = in.typeByName(name, f.SelectionSet)
		case typenameField:
			data[key] = root.Name
		default:
			fd := root.Fields.ForName(f.Name)
			if fd == nil {
				continue
			}
			data[key] = res.value(fd.Type, f.SelectionSet)
		}
	}
	return http.StatusOK, &Response{Data: data}, kind
}

func (s *Server) failure(fields []*ast.Field) (int, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range fields {
		if status, ok := s.failures[f.Name]; ok {
			return status, f.Name, true
		}
	}
	return 0, "", false
}

func (s *Server) write(w http.ResponseWriter, kind string, status int, resp *Response) {
	if s.requestsTotal != nil {
		if vec, err := s.requestsTotal.WithLabels(kind, strconv.Itoa(status)); err == nil {
			_ = vec.Inc()
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warn("write response", "error", err)
	}
}

func argument(f *ast.Field, name string, vars map[string]any) any {
	arg := f.Arguments.ForName(name)
	if arg == nil || arg.Value == nil {
		return nil
	}
	v, err := arg.Value.Value(vars)
	if err != nil {
		return nil
	}
	return v
}

func parseGet(r *http.Request) (*Request, error) {
	q := r.URL.Query()
	req := &Request{Query: q.Get("query"), OperationName: q.Get("operationName")}
	if vars := q.Get("variables"); vars != "" {
		if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
			return nil, errors.New("invalid variables JSON")
		}
	}
	return req, nil
}

func parsePost(r *http.Request) (*Request, error) {
	defer func() { _ = r.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize))
	if err != nil {
		return nil, errors.New("failed to read request body")
	}
	if len(body) == 0 {
		return nil, errors.New("empty request body")
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/graphql") {
		return &Request{Query: string(body)}, nil
	}
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errors.New("invalid JSON request body")
	}
	return &req, nil
}
