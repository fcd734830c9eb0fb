package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes a Registry to Prometheus. Counters and gauges map to
// their Prometheus kinds and histograms to summaries without quantiles.
// The metric set is only known at scrape time, so Describe sends nothing
// and the collector registers as unchecked.
type Collector struct {
	reg       *Registry
	namespace string
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector wraps reg. Metric names are prefixed with namespace.
func NewCollector(reg *Registry, namespace string) *Collector {
	return &Collector{reg: reg, namespace: namespace}
}

func (c *Collector) Describe(chan<- *prometheus.Desc) {}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.reg.each(
		func(m *Counter) {
			ch <- prometheus.MustNewConstMetric(c.desc(m.Name()), prometheus.CounterValue, float64(m.Value()))
		},
		func(m *Gauge) {
			ch <- prometheus.MustNewConstMetric(c.desc(m.Name()), prometheus.GaugeValue, float64(m.Value()))
		},
		func(m *Histogram) {
			s := m.Snapshot()
			ch <- prometheus.MustNewConstSummary(c.desc(m.Name()), uint64(s.Count), s.Sum, nil)
		},
	)
}

func (c *Collector) desc(name string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(c.namespace, "", PromName(name)), name, nil, nil)
}

// PromName maps a dotted metric name to a Prometheus one.
func PromName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// Handler serves reg in the Prometheus text format.
func Handler(reg *Registry, namespace string) http.Handler {
	pr := prometheus.NewRegistry()
	pr.MustRegister(NewCollector(reg, namespace))
	return promhttp.HandlerFor(pr, promhttp.HandlerOpts{})
}
