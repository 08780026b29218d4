// Package metrics exposes Prometheus collectors fed from bus events.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/hanpama/fieldgraph/internal/eventbus"
	events "github.com/hanpama/fieldgraph/internal/events"
)

const namespace = "fieldgraph"

// Metrics holds the registered collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	analyses      *prometheus.CounterVec
	duration      prometheus.Histogram
	vertices      prometheus.Histogram
	httpRequests  *prometheus.CounterVec
	schemaReloads *prometheus.CounterVec

	unsubscribe []func()
}

// New registers the collectors with reg and subscribes them to bus. A nil reg
// uses a fresh registry.
func New(bus *eventbus.Bus, reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyzed documents by result (ok, error, cached).",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time spent analyzing a document.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		vertices: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_vertices",
			Help:      "Vertices per analyzed document.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by status code.",
		}, []string{"code"}),
		schemaReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_reloads_total",
			Help:      "Schema reloads by result.",
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{m.analyses, m.duration, m.vertices, m.httpRequests, m.schemaReloads} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	m.unsubscribe = []func(){
		eventbus.Subscribe(bus, func(_ context.Context, e events.AnalysisFinish) {
			switch {
			case e.Err != nil:
				m.analyses.WithLabelValues("error").Inc()
				return
			case e.Cached:
				m.analyses.WithLabelValues("cached").Inc()
			default:
				m.analyses.WithLabelValues("ok").Inc()
				m.duration.Observe(e.Duration.Seconds())
			}
			m.vertices.Observe(float64(e.Vertices))
		}),
		eventbus.Subscribe(bus, func(_ context.Context, e events.HTTPFinish) {
			m.httpRequests.WithLabelValues(strconv.Itoa(e.Status)).Inc()
		}),
		eventbus.Subscribe(bus, func(_ context.Context, e events.SchemaReloaded) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.schemaReloads.WithLabelValues(result).Inc()
		}),
	}
	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Close detaches the collectors from the bus.
func (m *Metrics) Close() {
	for _, u := range m.unsubscribe {
		u()
	}
}
