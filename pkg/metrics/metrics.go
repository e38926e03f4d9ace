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

// ErrLabelCountMismatch is returned when the number of label values doesn't match the defined labels.
var ErrLabelCountMismatch = errors.New("label count mismatch")

// ErrNegativeCounterValue is returned when attempting to add a negative value to a counter.
var ErrNegativeCounterValue = errors.New("counter cannot be decreased")

// ErrDuplicateMetric is returned when registering a metric with a name that is already registered.
var ErrDuplicateMetric = errors.New("duplicate metric name")

// atomicFloat64 stores a float64 as raw bits for atomic access.
type atomicFloat64 struct {
	bits uint64
}

func (a *atomicFloat64) Load() float64 {
	return math.Float64frombits(atomic.LoadUint64(&a.bits))
}

func (a *atomicFloat64) Store(val float64) {
	atomic.StoreUint64(&a.bits, math.Float64bits(val))
}

// Add uses a CAS loop; float64 addition has no native atomic op.
func (a *atomicFloat64) Add(delta float64) {
	for {
		old := atomic.LoadUint64(&a.bits)
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if atomic.CompareAndSwapUint64(&a.bits, old, next) {
			return
		}
	}
}

// MetricType represents the type of a metric.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// Metric is the interface implemented by all metric types.
type Metric interface {
	// Name returns the metric name.
	Name() string
	// Help returns the help text.
	Help() string
	// Type returns the metric type.
	Type() MetricType
	// Collect returns all metric samples for exposition.
	Collect() []Sample
}

// Sample represents a single metric sample with labels.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// labelSpace holds the per-label-combination values of one metric. All three
// metric kinds share this lookup so the double-checked locking lives in one
// place.
type labelSpace[V any] struct {
	labelNames []string
	mu         sync.RWMutex
	values     map[string]*V
}

func newLabelSpace[V any](labelNames []string) *labelSpace[V] {
	return &labelSpace[V]{
		labelNames: labelNames,
		values:     make(map[string]*V),
	}
}

// lookup returns the value for the given label values, creating it on first
// use via create.
func (s *labelSpace[V]) lookup(metricName string, values []string, create func(labels map[string]string) *V) (*V, error) {
	if len(values) != len(s.labelNames) {
		return nil, fmt.Errorf("%w: %s expected %d labels, got %d", ErrLabelCountMismatch, metricName, len(s.labelNames), len(values))
	}

	key := strings.Join(values, "\x00")
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	if ok {
		return v, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok = s.values[key]; ok {
		return v, nil
	}
	labels := make(map[string]string, len(s.labelNames))
	for i, name := range s.labelNames {
		labels[name] = values[i]
	}
	v = create(labels)
	s.values[key] = v
	return v, nil
}

// snapshot returns the current values under the read lock.
func (s *labelSpace[V]) snapshot() []*V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*V, 0, len(s.values))
	for _, v := range s.values {
		out = append(out, v)
	}
	return out
}

// ----------------------------------------------------------------------------
// Counter

// Counter is a monotonically increasing metric.
type Counter struct {
	name  string
	help  string
	space *labelSpace[counterValue]
}

type counterValue struct {
	labels map[string]string
	value  atomicFloat64
}

func newCounter(name, help string, labelNames []string) *Counter {
	return &Counter{name: name, help: help, space: newLabelSpace[counterValue](labelNames)}
}

// Name returns the metric name.
func (c *Counter) Name() string { return c.name }

// Help returns the help text.
func (c *Counter) Help() string { return c.help }

// Type returns the metric type.
func (c *Counter) Type() MetricType { return MetricTypeCounter }

// WithLabels returns a CounterVec for the given label values.
// Returns an error if the label count doesn't match.
func (c *Counter) WithLabels(values ...string) (*CounterVec, error) {
	cv, err := c.space.lookup(c.name, values, func(labels map[string]string) *counterValue {
		return &counterValue{labels: labels}
	})
	if err != nil {
		return nil, err
	}
	return &CounterVec{cv: cv}, nil
}

// Inc increments the counter by 1 (for counters without labels).
func (c *Counter) Inc() error {
	return c.Add(1)
}

// Add adds the given value to the counter (for counters without labels).
// Returns an error if delta is negative.
func (c *Counter) Add(delta float64) error {
	if delta < 0 {
		return fmt.Errorf("%w: counter %s", ErrNegativeCounterValue, c.name)
	}
	vec, err := c.WithLabels()
	if err != nil {
		return err
	}
	return vec.Add(delta)
}

// Collect returns all metric samples.
func (c *Counter) Collect() []Sample {
	values := c.space.snapshot()
	samples := make([]Sample, 0, len(values))
	for _, cv := range values {
		samples = append(samples, Sample{Name: c.name, Labels: cv.labels, Value: cv.value.Load()})
	}
	return samples
}

// CounterVec provides methods for a specific label combination.
type CounterVec struct {
	cv *counterValue
}

// Inc increments the counter by 1.
func (v *CounterVec) Inc() error {
	return v.Add(1)
}

// Add adds the given value to the counter.
// Returns an error if delta is negative.
func (v *CounterVec) Add(delta float64) error {
	if delta < 0 {
		return ErrNegativeCounterValue
	}
	v.cv.value.Add(delta)
	return nil
}

// ----------------------------------------------------------------------------
// Gauge

// Gauge is a metric that can arbitrarily go up and down.
type Gauge struct {
	name  string
	help  string
	space *labelSpace[gaugeValue]
}

type gaugeValue struct {
	labels map[string]string
	value  atomicFloat64
}

func newGauge(name, help string, labelNames []string) *Gauge {
	return &Gauge{name: name, help: help, space: newLabelSpace[gaugeValue](labelNames)}
}

// Name returns the metric name.
func (g *Gauge) Name() string { return g.name }

// Help returns the help text.
func (g *Gauge) Help() string { return g.help }

// Type returns the metric type.
func (g *Gauge) Type() MetricType { return MetricTypeGauge }

// WithLabels returns a GaugeVec for the given label values.
// Returns an error if the label count doesn't match.
func (g *Gauge) WithLabels(values ...string) (*GaugeVec, error) {
	gv, err := g.space.lookup(g.name, values, func(labels map[string]string) *gaugeValue {
		return &gaugeValue{labels: labels}
	})
	if err != nil {
		return nil, err
	}
	return &GaugeVec{gv: gv}, nil
}

// Set sets the gauge to the given value (for gauges without labels).
func (g *Gauge) Set(value float64) error {
	vec, err := g.WithLabels()
	if err != nil {
		return err
	}
	vec.Set(value)
	return nil
}

// Inc increments the gauge by 1 (for gauges without labels).
func (g *Gauge) Inc() error {
	return g.Add(1)
}

// Dec decrements the gauge by 1 (for gauges without labels).
func (g *Gauge) Dec() error {
	return g.Add(-1)
}

// Add adds the given value to the gauge (for gauges without labels).
func (g *Gauge) Add(delta float64) error {
	vec, err := g.WithLabels()
	if err != nil {
		return err
	}
	vec.Add(delta)
	return nil
}

// Collect returns all metric samples.
func (g *Gauge) Collect() []Sample {
	values := g.space.snapshot()
	samples := make([]Sample, 0, len(values))
	for _, gv := range values {
		samples = append(samples, Sample{Name: g.name, Labels: gv.labels, Value: gv.value.Load()})
	}
	return samples
}

// GaugeVec provides methods for a specific label combination.
type GaugeVec struct {
	gv *gaugeValue
}

// Set sets the gauge to the given value.
func (v *GaugeVec) Set(value float64) {
	v.gv.value.Store(value)
}

// Inc increments the gauge by 1.
func (v *GaugeVec) Inc() {
	v.Add(1)
}

// Dec decrements the gauge by 1.
func (v *GaugeVec) Dec() {
	v.Add(-1)
}

// Add adds the given value to the gauge.
func (v *GaugeVec) Add(delta float64) {
	v.gv.value.Add(delta)
}

// ----------------------------------------------------------------------------
// Histogram

// Histogram tracks the distribution of observed values across buckets, with
// sum and count aggregations.
type Histogram struct {
	name    string
	help    string
	buckets []float64
	space   *labelSpace[histogramValue]
}

type histogramValue struct {
	labels  map[string]string
	buckets []float64     // upper bounds, sorted, last is +Inf
	counts  []uint64      // atomic counters per bucket
	sum     atomicFloat64 // sum of all observed values
	count   uint64        // total count (atomic)
}

func newHistogram(name, help string, buckets []float64, labelNames []string) *Histogram {
	sorted := make([]float64, len(buckets))
	copy(sorted, buckets)
	sort.Float64s(sorted)
	if len(sorted) == 0 || !math.IsInf(sorted[len(sorted)-1], 1) {
		sorted = append(sorted, math.Inf(1))
	}

	return &Histogram{
		name:    name,
		help:    help,
		buckets: sorted,
		space:   newLabelSpace[histogramValue](labelNames),
	}
}

// Name returns the metric name.
func (h *Histogram) Name() string { return h.name }

// Help returns the help text.
func (h *Histogram) Help() string { return h.help }

// Type returns the metric type.
func (h *Histogram) Type() MetricType { return MetricTypeHistogram }

// WithLabels returns a HistogramVec for the given label values.
// Returns an error if the label count doesn't match.
func (h *Histogram) WithLabels(values ...string) (*HistogramVec, error) {
	hv, err := h.space.lookup(h.name, values, func(labels map[string]string) *histogramValue {
		return &histogramValue{
			labels:  labels,
			buckets: h.buckets,
			counts:  make([]uint64, len(h.buckets)),
		}
	})
	if err != nil {
		return nil, err
	}
	return &HistogramVec{hv: hv}, nil
}

// Observe records a value in the histogram (for histograms without labels).
func (h *Histogram) Observe(value float64) error {
	vec, err := h.WithLabels()
	if err != nil {
		return err
	}
	vec.Observe(value)
	return nil
}

// Collect returns all metric samples. Bucket counts are cumulative per the
// Prometheus exposition format.
func (h *Histogram) Collect() []Sample {
	values := h.space.snapshot()
	samples := make([]Sample, 0, (len(h.buckets)+2)*len(values))
	for _, hv := range values {
		var cumulative uint64
		for i, bound := range hv.buckets {
			cumulative += atomic.LoadUint64(&hv.counts[i])
			bucketLabels := make(map[string]string, len(hv.labels)+1)
			for k, v := range hv.labels {
				bucketLabels[k] = v
			}
			if math.IsInf(bound, 1) {
				bucketLabels["le"] = "+Inf"
			} else {
				bucketLabels["le"] = formatFloat(bound)
			}
			samples = append(samples, Sample{
				Name:   h.name + "_bucket",
				Labels: bucketLabels,
				Value:  float64(cumulative),
			})
		}

		samples = append(samples, Sample{
			Name:   h.name + "_sum",
			Labels: hv.labels,
			Value:  hv.sum.Load(),
		})
		samples = append(samples, Sample{
			Name:   h.name + "_count",
			Labels: hv.labels,
			Value:  float64(atomic.LoadUint64(&hv.count)),
		})
	}
	return samples
}

// HistogramVec provides methods for a specific label combination.
type HistogramVec struct {
	hv *histogramValue
}

// Observe records a value in the histogram.
func (v *HistogramVec) Observe(value float64) {
	for i, bound := range v.hv.buckets {
		if value <= bound {
			atomic.AddUint64(&v.hv.counts[i], 1)
			break
		}
	}
	v.hv.sum.Add(value)
	atomic.AddUint64(&v.hv.count, 1)
}

// DefaultBuckets are the default histogram buckets for request durations
// (in seconds).
var DefaultBuckets = []float64{
	0.001, // 1ms
	0.005, // 5ms
	0.01,  // 10ms
	0.025, // 25ms
	0.05,  // 50ms
	0.1,   // 100ms
	0.25,  // 250ms
	0.5,   // 500ms
	1,     // 1s
	2.5,   // 2.5s
	5,     // 5s
	10,    // 10s
}
