// Package metrics provides the counters, gauges and histograms the
// synthesis pipeline reports into. Counter and Gauge are atomic; Histogram
// takes a mutex. A Registry can be exported to Prometheus with Collector.
package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing count.
type Counter struct {
	name  string
	value atomic.Int64
}

// NewCounter returns a zero Counter called name.
func NewCounter(name string) *Counter { return &Counter{name: name} }

// Inc adds one.
func (c *Counter) Inc() { c.value.Add(1) }

// Add adds n. Non-positive n is ignored.
func (c *Counter) Add(n int64) {
	if n > 0 {
		c.value.Add(n)
	}
}

func (c *Counter) Value() int64 { return c.value.Load() }
func (c *Counter) Name() string { return c.name }

// Gauge is a value that moves both ways.
type Gauge struct {
	name  string
	value atomic.Int64
}

// NewGauge returns a zero Gauge called name.
func NewGauge(name string) *Gauge { return &Gauge{name: name} }

func (g *Gauge) Set(v int64) { g.value.Store(v) }
func (g *Gauge) Add(d int64) { g.value.Add(d) }
func (g *Gauge) Inc() { g.value.Add(1) }
func (g *Gauge) Dec() { g.value.Add(-1) }
func (g *Gauge) Value() int64 { return g.value.Load() }
func (g *Gauge) Name() string { return g.name }

// Histogram summarizes observations by count, sum, min and max.
type Histogram struct {
	name string

	mu    sync.Mutex
	count int64
	sum   float64
	min   float64
	max   float64
}

// NewHistogram returns an empty Histogram called name.
func NewHistogram(name string) *Histogram {
	return &Histogram{name: name, min: math.MaxFloat64, max: -math.MaxFloat64}
}

// Observe records v.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	h.min = math.Min(h.min, v)
	h.max = math.Max(h.max, v)
}

// HistogramSnapshot is a consistent read of a Histogram. Min, Max and Mean
// are zero when Count is.
type HistogramSnapshot struct {
	Count    int64
	Sum      float64
	Min, Max float64
	Mean     float64
}

// Snapshot reads every statistic under one lock.
func (h *Histogram) Snapshot() HistogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := HistogramSnapshot{Count: h.count, Sum: h.sum}
	if h.count > 0 {
		s.Min, s.Max = h.min, h.max
		s.Mean = h.sum / float64(h.count)
	}
	return s
}

func (h *Histogram) Count() int64 { return h.Snapshot().Count }
func (h *Histogram) Sum() float64 { return h.Snapshot().Sum }
func (h *Histogram) Mean() float64 { return h.Snapshot().Mean }
func (h *Histogram) Name() string { return h.name }

// Timer measures one operation into a histogram, in milliseconds.
type Timer struct {
	start time.Time
	hist  *Histogram
}

// NewTimer starts timing. A nil h makes Stop a plain stopwatch.
func NewTimer(h *Histogram) *Timer {
	return &Timer{start: time.Now(), hist: h}
}

// Stop observes the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	if t.hist != nil {
		t.hist.Observe(float64(d.Microseconds()) / 1000)
	}
	return d
}
