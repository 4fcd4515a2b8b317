// Package tracing wires OpenTelemetry tracing for scans.
//
// Scans always run with a tracer. Without --trace it is a no-op; with it,
// finished spans are written to a file as JSON lines by JSONExporter:
//
//	tp, err := tracing.Open("trace.jsonl")
//	if err != nil {
//	    return err
//	}
//	defer tp.Shutdown(context.Background())
//	tracer := tp.Tracer()
//
// Outgoing probe requests carry a W3C traceparent header (see Inject) so a
// target that records traces can correlate its spans with the probe that
// caused them.
package tracing
