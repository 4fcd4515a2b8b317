package metrics

import "log/slog"

// Probe is the metric set recorded by the probe executor and the scanner.
// A nil *Probe records nothing.
type Probe struct {
	ProbesTotal   *Counter
	AttemptsTotal *Counter
	InFlight      *Gauge
	Duration      *Histogram
	SchemaFetches *Counter

	log *slog.Logger
}

// NewProbe registers the probe metrics on r.
func NewProbe(r *Registry) *Probe {
	return &Probe{
		ProbesTotal: r.NewCounter("gqlprobe_probes_total",
			"Probes completed, by root kind and outcome.", "kind", "outcome"),
		AttemptsTotal: r.NewCounter("gqlprobe_attempts_total",
			"HTTP attempts made, including retries.", "kind"),
		InFlight: r.NewGauge("gqlprobe_inflight_requests",
			"Probe requests currently holding an admission permit."),
		Duration: r.NewHistogram("gqlprobe_probe_duration_seconds",
			"Wall time from first attempt to final result.", nil, "kind"),
		SchemaFetches: r.NewCounter("gqlprobe_schema_fetches_total",
			"Introspection fetches, by result.", "result"),
	}
}

// WithLogger reports label errors to log instead of dropping them.
func (p *Probe) WithLogger(log *slog.Logger) *Probe {
	if p != nil {
		p.log = log
	}
	return p
}

// Attempt counts one HTTP attempt.
func (p *Probe) Attempt(kind string) {
	if p == nil {
		return
	}
	if vec, err := p.AttemptsTotal.WithLabels(kind); err == nil {
		_ = vec.Inc()
	} else {
		p.warn(err)
	}
}

// Acquired marks a request as in flight. Call Released when it ends.
func (p *Probe) Acquired() {
	if p != nil {
		_ = p.InFlight.Inc()
	}
}

// Released undoes Acquired.
func (p *Probe) Released() {
	if p != nil {
		_ = p.InFlight.Dec()
	}
}

// Finished records a completed probe and its duration in seconds.
func (p *Probe) Finished(kind, outcome string, seconds float64) {
	if p == nil {
		return
	}
	if vec, err := p.ProbesTotal.WithLabels(kind, outcome); err == nil {
		_ = vec.Inc()
	} else {
		p.warn(err)
	}
	if vec, err := p.Duration.WithLabels(kind); err == nil {
		vec.Observe(seconds)
	} else {
		p.warn(err)
	}
}

// SchemaFetch counts an introspection fetch; result is "ok" or "error".
func (p *Probe) SchemaFetch(result string) {
	if p == nil {
		return
	}
	if vec, err := p.SchemaFetches.WithLabels(result); err == nil {
		_ = vec.Inc()
	} else {
		p.warn(err)
	}
}

func (p *Probe) warn(err error) {
	if p.log != nil {
		p.log.Warn("failed to record metric", "error", err)
	}
}
