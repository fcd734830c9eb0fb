package metrics

import (
	"sort"
	"sync"
)

// Registry holds metrics by name. Lookups create the metric on first use,
// so callers never handle a missing one.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
}

// DefaultRegistry backs Synthesis and the precompile metrics in standard.go.
var DefaultRegistry = NewRegistry()

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

// getOrCreate looks name up under the read lock and falls back to the
// write lock, checking again before creating.
func getOrCreate[M any](mu *sync.RWMutex, m map[string]*M, name string, create func(string) *M) *M {
	mu.RLock()
	v, ok := m[name]
	mu.RUnlock()
	if ok {
		return v
	}
	mu.Lock()
	defer mu.Unlock()
	if v, ok = m[name]; ok {
		return v
	}
	v = create(name)
	m[name] = v
	return v
}

// Counter returns the counter called name.
func (r *Registry) Counter(name string) *Counter {
	return getOrCreate(&r.mu, r.counters, name, NewCounter)
}

// Gauge returns the gauge called name.
func (r *Registry) Gauge(name string) *Gauge {
	return getOrCreate(&r.mu, r.gauges, name, NewGauge)
}

// Histogram returns the histogram called name.
func (r *Registry) Histogram(name string) *Histogram {
	return getOrCreate(&r.mu, r.histograms, name, NewHistogram)
}

// Snapshot copies every value in the registry: int64 for counters and
// gauges, HistogramSnapshot for histograms.
func (r *Registry) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := make(map[string]any, len(r.counters)+len(r.gauges)+len(r.histograms))
	for name, c := range r.counters {
		snap[name] = c.Value()
	}
	for name, g := range r.gauges {
		snap[name] = g.Value()
	}
	for name, h := range r.histograms {
		snap[name] = h.Snapshot()
	}
	return snap
}

// each calls the matching function for every metric in name order.
func (r *Registry) each(counter func(*Counter), gauge func(*Gauge), hist func(*Histogram)) {
	r.mu.RLock()
	cs := sortedValues(r.counters)
	gs := sortedValues(r.gauges)
	hs := sortedValues(r.histograms)
	r.mu.RUnlock()
	for _, c := range cs {
		counter(c)
	}
	for _, g := range gs {
		gauge(g)
	}
	for _, h := range hs {
		hist(h)
	}
}

func sortedValues[M any](m map[string]*M) []*M {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*M, len(names))
	for i, name := range names {
		out[i] = m[name]
	}
	return out
}
