package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ServiceName is the service.name resource attribute and the tracer name.
const ServiceName = "gqlprobe"

// Provider owns a tracer provider and the exporter behind it.
type Provider struct {
	tp trace.TracerProvider
	sp *sdktrace.TracerProvider
}

// Nop returns a Provider whose spans are discarded.
func Nop() *Provider {
	return &Provider{tp: noop.NewTracerProvider()}
}

// New returns a Provider exporting every finished span to w synchronously.
func New(w io.Writer, opts ...ExporterOption) *Provider {
	return newProvider(NewJSONExporter(w, opts...))
}

// Open creates (or truncates) path and returns a Provider exporting to it.
// Shutdown closes the file.
func Open(path string, opts ...ExporterOption) (*Provider, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace output: %w", err)
	}
	return newProvider(NewJSONExporter(f, append(opts, withCloser(f))...)), nil
}

func newProvider(exp sdktrace.SpanExporter) *Provider {
	res := resource.NewSchemaless(attribute.String("service.name", ServiceName))
	sp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exp),
		sdktrace.WithResource(res),
	)
	return &Provider{tp: sp, sp: sp}
}

// Tracer returns the named tracer of the provider.
func (p *Provider) Tracer() trace.Tracer {
	return p.tp.Tracer(ServiceName)
}

// Shutdown flushes pending spans and releases the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sp == nil {
		return nil
	}
	return p.sp.Shutdown(ctx)
}

var propagator = propagation.TraceContext{}

// Inject writes the W3C traceparent of the span in ctx into h. Nothing is
// written when ctx carries no sampled span.
func Inject(ctx context.Context, h propagation.TextMapCarrier) {
	propagator.Inject(ctx, h)
}

// Extract returns ctx with the remote span context read from h.
func Extract(ctx context.Context, h propagation.TextMapCarrier) context.Context {
	return propagator.Extract(ctx, h)
}
