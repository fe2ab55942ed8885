package metrics

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	// ErrLabelCount is returned when With gets the wrong number of values.
	ErrLabelCount = errors.New("label count mismatch")
	// ErrDuplicate is returned when a family name is registered twice.
	ErrDuplicate = errors.New("duplicate metric name")
)

// Kind is the Prometheus metric type.
type Kind string

// Metric kinds.
const (
	KindCounter   Kind = "counter"
	KindGauge     Kind = "gauge"
	KindHistogram Kind = "histogram"
)

// atomicFloat is a float64 updated with compare-and-swap.
type atomicFloat struct{ bits atomic.Uint64 }

func (f *atomicFloat) Load() float64 { return math.Float64frombits(f.bits.Load()) }

func (f *atomicFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

func (f *atomicFloat) Add(delta float64) {
	for {
		old := f.bits.Load()
		if f.bits.CompareAndSwap(old, math.Float64bits(math.Float64frombits(old)+delta)) {
			return
		}
	}
}

// Sample is one exposed line.
type Sample struct {
	Name   string
	Labels []Label
	Value  float64
}

// Label is a name/value pair on a sample.
type Label struct {
	Name, Value string
}

// family keeps the series of one metric, keyed by label values.
type family[S any] struct {
	name   string
	help   string
	kind   Kind
	labels []string
	create func() *S

	mu     sync.RWMutex
	series map[string]*S
	values map[string][]string
}

func newFamily[S any](name, help string, kind Kind, labels []string, create func() *S) *family[S] {
	return &family[S]{
		name:   name,
		help:   help,
		kind:   kind,
		labels: labels,
		create: create,
		series: make(map[string]*S),
		values: make(map[string][]string),
	}
}

func (f *family[S]) with(values []string) (*S, error) {
	if len(values) != len(f.labels) {
		return nil, fmt.Errorf("%w: %s has %d labels, got %d values", ErrLabelCount, f.name, len(f.labels), len(values))
	}
	key := strings.Join(values, "\xff")

	f.mu.RLock()
	s, ok := f.series[key]
	f.mu.RUnlock()
	if ok {
		return s, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok = f.series[key]; !ok {
		s = f.create()
		f.series[key] = s
		f.values[key] = slices.Clone(values)
	}
	return s, nil
}

// each calls fn for every series in label order.
func (f *family[S]) each(fn func(labels []Label, s *S)) {
	f.mu.RLock()
	keys := make([]string, 0, len(f.series))
	for k := range f.series {
		keys = append(keys, k)
	}
	f.mu.RUnlock()
	sort.Strings(keys)

	for _, k := range keys {
		f.mu.RLock()
		s, values := f.series[k], f.values[k]
		f.mu.RUnlock()
		labels := make([]Label, len(values))
		for i, v := range values {
			labels[i] = Label{Name: f.labels[i], Value: v}
		}
		fn(labels, s)
	}
}

func (f *family[S]) Name() string { return f.name }
func (f *family[S]) Help() string { return f.help }
func (f *family[S]) Kind() Kind   { return f.kind }

// Counter only goes up.
type Counter struct{ *family[CounterSeries] }

// CounterSeries is one labelled counter.
type CounterSeries struct{ v atomicFloat }

// With returns the series for values. It panics when the number of values
// does not match the declared labels; use TryWith for untrusted input.
func (c *Counter) With(values ...string) *CounterSeries {
	s, err := c.with(values)
	if err != nil {
		panic(err)
	}
	return s
}

// TryWith is With returning an error instead of panicking.
func (c *Counter) TryWith(values ...string) (*CounterSeries, error) { return c.with(values) }

// Inc adds one.
func (s *CounterSeries) Inc() { s.v.Add(1) }

// Add adds delta. Negative deltas are ignored.
func (s *CounterSeries) Add(delta float64) {
	if delta > 0 {
		s.v.Add(delta)
	}
}

// Value returns the current count.
func (s *CounterSeries) Value() float64 { return s.v.Load() }

func (c *Counter) Collect() []Sample {
	var out []Sample
	c.each(func(labels []Label, s *CounterSeries) {
		out = append(out, Sample{Name: c.name, Labels: labels, Value: s.Value()})
	})
	return out
}

// Gauge can go up and down.
type Gauge struct{ *family[GaugeSeries] }

// GaugeSeries is one labelled gauge.
type GaugeSeries struct{ v atomicFloat }

// With returns the series for values and panics on a label count mismatch.
func (g *Gauge) With(values ...string) *GaugeSeries {
	s, err := g.with(values)
	if err != nil {
		panic(err)
	}
	return s
}

// Set replaces the value.
func (s *GaugeSeries) Set(v float64) { s.v.Store(v) }

// Add adds delta, which may be negative.
func (s *GaugeSeries) Add(delta float64) { s.v.Add(delta) }

// Value returns the current value.
func (s *GaugeSeries) Value() float64 { return s.v.Load() }

func (g *Gauge) Collect() []Sample {
	var out []Sample
	g.each(func(labels []Label, s *GaugeSeries) {
		out = append(out, Sample{Name: g.name, Labels: labels, Value: s.Value()})
	})
	return out
}

// Histogram counts observations into cumulative buckets.
type Histogram struct {
	*family[HistogramSeries]
	bounds []float64
}

// HistogramSeries is one labelled histogram.
type HistogramSeries struct {
	bounds []float64
	counts []atomic.Uint64
	count  atomic.Uint64
	sum    atomicFloat
}

// With returns the series for values and panics on a label count mismatch.
func (h *Histogram) With(values ...string) *HistogramSeries {
	s, err := h.with(values)
	if err != nil {
		panic(err)
	}
	return s
}

// Observe records v.
func (s *HistogramSeries) Observe(v float64) {
	i := sort.SearchFloat64s(s.bounds, v)
	if i < len(s.counts) {
		s.counts[i].Add(1)
	}
	s.count.Add(1)
	s.sum.Add(v)
}

// Count returns the number of observations.
func (s *HistogramSeries) Count() uint64 { return s.count.Load() }

func (h *Histogram) Collect() []Sample {
	var out []Sample
	h.each(func(labels []Label, s *HistogramSeries) {
		var cumulative uint64
		for i, bound := range s.bounds {
			cumulative += s.counts[i].Load()
			le := Label{Name: "le", Value: formatFloat(bound)}
			out = append(out, Sample{
				Name:   h.name + "_bucket",
				Labels: append(slices.Clone(labels), le),
				Value:  float64(cumulative),
			})
		}
		out = append(out,
			Sample{Name: h.name + "_sum", Labels: labels, Value: s.sum.Load()},
			Sample{Name: h.name + "_count", Labels: labels, Value: float64(s.Count())},
		)
	})
	return out
}

// Metric is a registered family.
type Metric interface {
	Name() string
	Help() string
	Kind() Kind
	Collect() []Sample
}

// Registry holds metric families and scrape hooks.
type Registry struct {
	mu      sync.RWMutex
	metrics []Metric
	names   map[string]bool
	hooks   []func()
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// NewCounter registers a counter. It panics if name is taken.
func (r *Registry) NewCounter(name, help string, labels ...string) *Counter {
	c := &Counter{newFamily(name, help, KindCounter, labels, func() *CounterSeries { return &CounterSeries{} })}
	r.mustRegister(c)
	return c
}

// NewGauge registers a gauge. It panics if name is taken.
func (r *Registry) NewGauge(name, help string, labels ...string) *Gauge {
	g := &Gauge{newFamily(name, help, KindGauge, labels, func() *GaugeSeries { return &GaugeSeries{} })}
	r.mustRegister(g)
	return g
}

// NewHistogram registers a histogram with the given upper bounds; +Inf is
// added when missing. It panics if name is taken.
func (r *Registry) NewHistogram(name, help string, buckets []float64, labels ...string) *Histogram {
	bounds := slices.Clone(buckets)
	sort.Float64s(bounds)
	if len(bounds) == 0 || !math.IsInf(bounds[len(bounds)-1], 1) {
		bounds = append(bounds, math.Inf(1))
	}
	h := &Histogram{bounds: bounds}
	h.family = newFamily(name, help, KindHistogram, labels, func() *HistogramSeries {
		return &HistogramSeries{bounds: bounds, counts: make([]atomic.Uint64, len(bounds))}
	})
	r.mustRegister(h)
	return h
}

// Register adds a family built elsewhere.
func (r *Registry) Register(m Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.names[m.Name()] {
		return fmt.Errorf("%w: %s", ErrDuplicate, m.Name())
	}
	r.names[m.Name()] = true
	r.metrics = append(r.metrics, m)
	return nil
}

func (r *Registry) mustRegister(m Metric) {
	if err := r.Register(m); err != nil {
		panic(err)
	}
}

// OnScrape registers fn to run before every exposition, for values that are
// sampled rather than counted.
func (r *Registry) OnScrape(fn func()) {
	r.mu.Lock()
	r.hooks = append(r.hooks, fn)
	r.mu.Unlock()
}

// WriteTo writes every family that has at least one series.
func (r *Registry) WriteTo(w io.Writer) (int64, error) {
	r.mu.RLock()
	hooks := slices.Clone(r.hooks)
	metrics := slices.Clone(r.metrics)
	r.mu.RUnlock()

	for _, fn := range hooks {
		fn()
	}

	cw := &countingWriter{w: w}
	for _, m := range metrics {
		samples := m.Collect()
		if len(samples) == 0 {
			continue
		}
		fmt.Fprintf(cw, "# HELP %s %s\n", m.Name(), escape(m.Help(), false))
		fmt.Fprintf(cw, "# TYPE %s %s\n", m.Name(), m.Kind())
		for _, s := range samples {
			writeSample(cw, s)
		}
	}
	return cw.n, cw.err
}

// Handler serves the registry.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = r.WriteTo(w)
	})
}

func writeSample(w io.Writer, s Sample) {
	if len(s.Labels) == 0 {
		fmt.Fprintf(w, "%s %s\n", s.Name, formatFloat(s.Value))
		return
	}
	parts := make([]string, len(s.Labels))
	for i, l := range s.Labels {
		parts[i] = l.Name + `="` + escape(l.Value, true) + `"`
	}
	fmt.Fprintf(w, "%s{%s} %s\n", s.Name, strings.Join(parts, ","), formatFloat(s.Value))
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	case math.IsNaN(v):
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func escape(s string, quote bool) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	if quote {
		s = strings.ReplaceAll(s, `"`, `\"`)
	}
	return s
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
