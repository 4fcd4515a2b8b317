package tracing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// JSONExporter writes finished spans as one JSON object per line.
type JSONExporter struct {
	mu       sync.Mutex
	writer   io.Writer
	closer   io.Closer
	pretty   bool
	shutdown bool
}

// ExporterOption configures a JSONExporter.
type ExporterOption func(*JSONExporter)

// WithPrettyPrint enables indented JSON output.
func WithPrettyPrint() ExporterOption {
	return func(e *JSONExporter) {
		e.pretty = true
	}
}

// withCloser makes Shutdown close c.
func withCloser(c io.Closer) ExporterOption {
	return func(e *JSONExporter) {
		e.closer = c
	}
}

// NewJSONExporter returns an exporter writing to w.
func NewJSONExporter(w io.Writer, opts ...ExporterOption) *JSONExporter {
	e := &JSONExporter{writer: w}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *JSONExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shutdown {
		return nil
	}
	for _, span := range spans {
		var data []byte
		var err error
		if e.pretty {
			data, err = json.MarshalIndent(spanToOutput(span), "", "  ")
		} else {
			data, err = json.Marshal(spanToOutput(span))
		}
		if err != nil {
			return fmt.Errorf("failed to marshal span: %w", err)
		}
		data = append(data, '\n')
		if _, err := e.writer.Write(data); err != nil {
			return fmt.Errorf("failed to write span: %w", err)
		}
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter. Later exports are dropped.
func (e *JSONExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.shutdown {
		return nil
	}
	e.shutdown = true
	if e.closer != nil {
		return e.closer.Close()
	}
	return nil
}

// SpanOutput is the JSON shape of one exported span.
type SpanOutput struct {
	TraceID       string            `json:"traceId"`
	SpanID        string            `json:"spanId"`
	ParentID      string            `json:"parentId,omitempty"`
	Name          string            `json:"name"`
	StartTime     string            `json:"startTime"`
	EndTime       string            `json:"endTime"`
	Duration      string            `json:"duration"`
	Status        string            `json:"status"`
	StatusMessage string            `json:"statusMessage,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	Events        []EventOutput     `json:"events,omitempty"`
}

// EventOutput is the JSON shape of a span event.
type EventOutput struct {
	Name       string            `json:"name"`
	Timestamp  string            `json:"timestamp"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func spanToOutput(span sdktrace.ReadOnlySpan) SpanOutput {
	sc := span.SpanContext()
	output := SpanOutput{
		TraceID:       sc.TraceID().String(),
		SpanID:        sc.SpanID().String(),
		Name:          span.Name(),
		StartTime:     span.StartTime().Format(time.RFC3339Nano),
		EndTime:       span.EndTime().Format(time.RFC3339Nano),
		Duration:      span.EndTime().Sub(span.StartTime()).String(),
		Status:        span.Status().Code.String(),
		StatusMessage: span.Status().Description,
		Attributes:    attrMap(span.Attributes()),
	}
	if parent := span.Parent(); parent.IsValid() {
		output.ParentID = parent.SpanID().String()
	}

	if events := span.Events(); len(events) > 0 {
		output.Events = make([]EventOutput, len(events))
		for i, ev := range events {
			output.Events[i] = EventOutput{
				Name:       ev.Name,
				Timestamp:  ev.Time.Format(time.RFC3339Nano),
				Attributes: attrMap(ev.Attributes),
			}
		}
	}
	return output
}

func attrMap(attrs []attribute.KeyValue) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	m := make(map[string]string, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value.Emit()
	}
	return m
}

var _ sdktrace.SpanExporter = (*JSONExporter)(nil)
