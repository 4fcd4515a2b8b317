// Package metrics collects scan counters and latencies in the Prometheus text
// exposition format (text/plain; version=0.0.4).
//
// Counter, Gauge and Histogram are safe for concurrent use. A Registry renders
// every metric it owns, either over HTTP via Handler or to a file via WriteFile,
// which is how `gqlprobe scan --metrics FILE` leaves a snapshot behind.
//
// The probe pipeline records into a Probe set:
//
//	reg := metrics.NewRegistry()
//	pm := metrics.NewProbe(reg)
//	pm.Finished("query", "success", 0.12)
//	_ = reg.WriteFile("scan.prom")
//
// Exposed names:
//
//   - gqlprobe_probes_total{kind,outcome}
//   - gqlprobe_attempts_total{kind}
//   - gqlprobe_inflight_requests
//   - gqlprobe_probe_duration_seconds{kind}
//   - gqlprobe_schema_fetches_total{result}
package metrics
