// Package metrics provides the MetricsSink implementations: a Prometheus
// registry shared by all bots, an in-memory collector and a no-op sink.
package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

const namespace = "orderbot"

// Registry lazily creates one counter or gauge vector per metric name, each
// labelled by bot.
type Registry struct {
	reg *prometheus.Registry

	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
}

// NewRegistry returns a Registry with the Go runtime and process collectors
// already registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:      reg,
		counters: make(map[string]*prometheus.CounterVec),
		gauges:   make(map[string]*prometheus.GaugeVec),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Sink returns a MetricsSink that records under the given bot label.
func (r *Registry) Sink(bot string) *PrometheusSink {
	return &PrometheusSink{registry: r, bot: bot}
}

func (r *Registry) counter(name string) *prometheus.CounterVec {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name + "_total",
		Help:      "Count of " + strings.ReplaceAll(name, "_", " ") + ".",
	}, []string{"bot"})
	r.reg.MustRegister(c)
	r.counters[name] = c
	return c
}

func (r *Registry) gauge(name string) *prometheus.GaugeVec {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gauges[name]; ok {
		return g
	}
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      "Current " + strings.ReplaceAll(name, "_", " ") + ".",
	}, []string{"bot"})
	r.reg.MustRegister(g)
	r.gauges[name] = g
	return g
}

// PrometheusSink is the per-bot view of a Registry.
type PrometheusSink struct {
	registry *Registry
	bot      string
}

// IncCounter increments the named counter.
func (s *PrometheusSink) IncCounter(name string) {
	s.registry.counter(SanitizeName(name)).WithLabelValues(s.bot).Inc()
}

// Gauge sets the named gauge.
func (s *PrometheusSink) Gauge(name string, value float64) {
	s.registry.gauge(SanitizeName(name)).WithLabelValues(s.bot).Set(value)
}

// SanitizeName maps an arbitrary metric name onto [a-z0-9_].
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

var _ domain.MetricsSink = (*PrometheusSink)(nil)
