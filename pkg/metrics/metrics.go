package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	// ErrLabelCountMismatch is returned when label values don't match the label names.
	ErrLabelCountMismatch = errors.New("label count mismatch")

	// ErrNegativeCounterValue is returned when a counter would decrease.
	ErrNegativeCounterValue = errors.New("counter cannot be decreased")

	// ErrDuplicateMetric is raised when two metrics share a name in one registry.
	ErrDuplicateMetric = errors.New("duplicate metric name")
)

// MetricType is the exposition TYPE of a metric.
type MetricType string

// Metric types.
const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// Metric is implemented by Counter, Gauge and Histogram.
type Metric interface {
	Name() string
	Help() string
	Type() MetricType
	Collect() []Sample
}

// Sample is one exposition line.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// DefaultBuckets are latency buckets in seconds, from 5ms to 30s.
var DefaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// atomicFloat64 stores float64 bits for lock-free updates.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (a *atomicFloat64) Load() float64 { return math.Float64frombits(a.bits.Load()) }

func (a *atomicFloat64) Store(v float64) { a.bits.Store(math.Float64bits(v)) }

func (a *atomicFloat64) Add(delta float64) {
	for {
		old := a.bits.Load()
		if a.bits.CompareAndSwap(old, math.Float64bits(math.Float64frombits(old)+delta)) {
			return
		}
	}
}

// series is one label combination of a family.
type series[V any] struct {
	key    string
	labels map[string]string
	value  V
}

// family maps label values to series, creating them on first use.
type family[V any] struct {
	name       string
	help       string
	labelNames []string
	newValue   func() V

	mu     sync.RWMutex
	series map[string]*series[V]
}

func (f *family[V]) init(name, help string, labelNames []string, newValue func() V) {
	f.name = name
	f.help = help
	f.labelNames = labelNames
	f.newValue = newValue
	f.series = make(map[string]*series[V])
}

func newAtomic() *atomicFloat64 { return new(atomicFloat64) }

func (f *family[V]) Name() string { return f.name }

func (f *family[V]) Help() string { return f.help }

func (f *family[V]) get(kind MetricType, values []string) (*series[V], error) {
	if len(values) != len(f.labelNames) {
		return nil, fmt.Errorf("%w: %s %s expected %d labels, got %d",
			ErrLabelCountMismatch, kind, f.name, len(f.labelNames), len(values))
	}

	key := strings.Join(values, "\x00")
	f.mu.RLock()
	s, ok := f.series[key]
	f.mu.RUnlock()
	if ok {
		return s, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok = f.series[key]; ok {
		return s, nil
	}
	labels := make(map[string]string, len(values))
	for i, name := range f.labelNames {
		labels[name] = values[i]
	}
	s = &series[V]{key: key, labels: labels, value: f.newValue()}
	f.series[key] = s
	return s, nil
}

// snapshot returns the series ordered by label values.
func (f *family[V]) snapshot() []*series[V] {
	f.mu.RLock()
	out := make([]*series[V], 0, len(f.series))
	for _, s := range f.series {
		out = append(out, s)
	}
	f.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// Counter only goes up.
type Counter struct {
	family[*atomicFloat64]
}

// CounterVec is a Counter bound to label values.
type CounterVec struct {
	v *atomicFloat64
}

func newCounter(name, help string, labels []string) *Counter {
	c := &Counter{}
	c.init(name, help, labels, newAtomic)
	return c
}

// Type returns MetricTypeCounter.
func (c *Counter) Type() MetricType { return MetricTypeCounter }

// WithLabels returns the series for values.
func (c *Counter) WithLabels(values ...string) (*CounterVec, error) {
	s, err := c.get(MetricTypeCounter, values)
	if err != nil {
		return nil, err
	}
	return &CounterVec{v: s.value}, nil
}

// Inc adds one to an unlabelled counter.
func (c *Counter) Inc() error { return c.Add(1) }

// Add adds delta to an unlabelled counter.
func (c *Counter) Add(delta float64) error {
	vec, err := c.WithLabels()
	if err != nil {
		return err
	}
	return vec.Add(delta)
}

// Value returns the current value for values, or 0 if the series does not exist.
func (c *Counter) Value(values ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.series[strings.Join(values, "\x00")]; ok {
		return s.value.Load()
	}
	return 0
}

// Collect implements Metric.
func (c *Counter) Collect() []Sample {
	snap := c.snapshot()
	out := make([]Sample, 0, len(snap))
	for _, s := range snap {
		out = append(out, Sample{Name: c.name, Labels: s.labels, Value: s.value.Load()})
	}
	return out
}

// Inc adds one.
func (v *CounterVec) Inc() error { return v.Add(1) }

// Add adds delta, which must not be negative.
func (v *CounterVec) Add(delta float64) error {
	if delta < 0 {
		return ErrNegativeCounterValue
	}
	v.v.Add(delta)
	return nil
}

// Gauge goes up and down.
type Gauge struct {
	family[*atomicFloat64]
}

// GaugeVec is a Gauge bound to label values.
type GaugeVec struct {
	v *atomicFloat64
}

func newGauge(name, help string, labels []string) *Gauge {
	g := &Gauge{}
	g.init(name, help, labels, newAtomic)
	return g
}

// Type returns MetricTypeGauge.
func (g *Gauge) Type() MetricType { return MetricTypeGauge }

// WithLabels returns the series for values.
func (g *Gauge) WithLabels(values ...string) (*GaugeVec, error) {
	s, err := g.get(MetricTypeGauge, values)
	if err != nil {
		return nil, err
	}
	return &GaugeVec{v: s.value}, nil
}

// Set sets an unlabelled gauge.
func (g *Gauge) Set(value float64) error {
	vec, err := g.WithLabels()
	if err != nil {
		return err
	}
	vec.Set(value)
	return nil
}

// Add adds delta to an unlabelled gauge.
func (g *Gauge) Add(delta float64) error {
	vec, err := g.WithLabels()
	if err != nil {
		return err
	}
	vec.Add(delta)
	return nil
}

// Inc adds one to an unlabelled gauge.
func (g *Gauge) Inc() error { return g.Add(1) }

// Dec subtracts one from an unlabelled gauge.
func (g *Gauge) Dec() error { return g.Add(-1) }

// Value returns the current value for values, or 0 if the series does not exist.
func (g *Gauge) Value(values ...string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if s, ok := g.series[strings.Join(values, "\x00")]; ok {
		return s.value.Load()
	}
	return 0
}

// Collect implements Metric.
func (g *Gauge) Collect() []Sample {
	snap := g.snapshot()
	out := make([]Sample, 0, len(snap))
	for _, s := range snap {
		out = append(out, Sample{Name: g.name, Labels: s.labels, Value: s.value.Load()})
	}
	return out
}

// Set sets the gauge.
func (v *GaugeVec) Set(value float64) { v.v.Store(value) }

// Add adds delta.
func (v *GaugeVec) Add(delta float64) { v.v.Add(delta) }

// Inc adds one.
func (v *GaugeVec) Inc() { v.v.Add(1) }

// Dec subtracts one.
func (v *GaugeVec) Dec() { v.v.Add(-1) }

// Histogram counts observations into cumulative buckets.
type Histogram struct {
	family[*histogramValue]
	bounds []float64
}

type histogramValue struct {
	counts []atomic.Uint64
	sum    atomicFloat64
	count  atomic.Uint64
}

// HistogramVec is a Histogram bound to label values.
type HistogramVec struct {
	bounds []float64
	v      *histogramValue
}

func newHistogram(name, help string, buckets []float64, labels []string) *Histogram {
	bounds := append([]float64(nil), buckets...)
	sort.Float64s(bounds)
	if len(bounds) == 0 || !math.IsInf(bounds[len(bounds)-1], 1) {
		bounds = append(bounds, math.Inf(1))
	}
	h := &Histogram{bounds: bounds}
	h.init(name, help, labels, func() *histogramValue {
		return &histogramValue{counts: make([]atomic.Uint64, len(bounds))}
	})
	return h
}

// Type returns MetricTypeHistogram.
func (h *Histogram) Type() MetricType { return MetricTypeHistogram }

// WithLabels returns the series for values.
func (h *Histogram) WithLabels(values ...string) (*HistogramVec, error) {
	s, err := h.get(MetricTypeHistogram, values)
	if err != nil {
		return nil, err
	}
	return &HistogramVec{bounds: h.bounds, v: s.value}, nil
}

// Observe records value on an unlabelled histogram.
func (h *Histogram) Observe(value float64) error {
	vec, err := h.WithLabels()
	if err != nil {
		return err
	}
	vec.Observe(value)
	return nil
}

// Count returns the number of observations for values.
func (h *Histogram) Count(values ...string) uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if s, ok := h.series[strings.Join(values, "\x00")]; ok {
		return s.value.count.Load()
	}
	return 0
}

// Collect implements Metric.
func (h *Histogram) Collect() []Sample {
	snap := h.snapshot()
	out := make([]Sample, 0, len(snap)*(len(h.bounds)+2))
	for _, s := range snap {
		var cumulative uint64
		for i, bound := range h.bounds {
			cumulative += s.value.counts[i].Load()
			labels := make(map[string]string, len(s.labels)+1)
			for k, v := range s.labels {
				labels[k] = v
			}
			labels["le"] = formatFloat(bound)
			out = append(out, Sample{Name: h.name + "_bucket", Labels: labels, Value: float64(cumulative)})
		}
		out = append(out,
			Sample{Name: h.name + "_sum", Labels: s.labels, Value: s.value.sum.Load()},
			Sample{Name: h.name + "_count", Labels: s.labels, Value: float64(s.value.count.Load())},
		)
	}
	return out
}

// Observe records value.
func (v *HistogramVec) Observe(value float64) {
	for i, bound := range v.bounds {
		if value <= bound {
			v.v.counts[i].Add(1)
			break
		}
	}
	v.v.sum.Add(value)
	v.v.count.Add(1)
}
