// Package metrics holds the Prometheus collectors for the query pipeline
// and exposes them over HTTP. All methods are safe on a nil *Pipeline so
// components can run without instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medgraph"

// DefaultBuckets are the stage latency buckets (in seconds).
var DefaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30}

// Pipeline groups the collectors for one process.
type Pipeline struct {
	registry *prometheus.Registry

	queries       *prometheus.CounterVec
	querySource   *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	modelCalls    *prometheus.CounterVec
	rowsReturned  prometheus.Histogram
	breakerState  prometheus.Gauge
	vocabulary    *prometheus.GaugeVec
}

// New creates a Pipeline on its own registry, with Go runtime and process
// collectors attached.
func New() *Pipeline {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p := &Pipeline{
		registry: reg,
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Questions processed, by outcome.",
		}, []string{"outcome"}),
		querySource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_source_total",
			Help:      "Cypher queries executed, by origin (model or fallback).",
		}, []string{"source"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generated_cypher_rejected_total",
			Help:      "Model-generated queries rejected by validation, by reason.",
		}, []string{"reason"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Latency of each pipeline stage.",
			Buckets:   DefaultBuckets,
		}, []string{"stage"}),
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Language model calls, by purpose and status.",
		}, []string{"purpose", "status"}),
		rowsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rows_returned",
			Help:      "Rows returned by the executed query.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
		}),
		breakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_breaker_state",
			Help:      "Model circuit breaker state (0 closed, 1 open, 2 half-open).",
		}),
		vocabulary: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "vocabulary_size",
			Help:      "Names cached from the graph at startup, by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(p.queries, p.querySource, p.rejected, p.stageDuration,
		p.modelCalls, p.rowsReturned, p.breakerState, p.vocabulary)
	return p
}

// Registry returns the underlying registry.
func (p *Pipeline) Registry() *prometheus.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Pipeline) Handler() http.Handler {
	if p == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Outcome counts one processed question.
func (p *Pipeline) Outcome(outcome string) {
	if p == nil {
		return
	}
	p.queries.WithLabelValues(outcome).Inc()
}

// Source counts one executed query by origin.
func (p *Pipeline) Source(source string) {
	if p == nil {
		return
	}
	p.querySource.WithLabelValues(source).Inc()
}

// Rejected counts a generated query that failed validation.
func (p *Pipeline) Rejected(reason string) {
	if p == nil {
		return
	}
	p.rejected.WithLabelValues(reason).Inc()
}

// ObserveStage records the time since start for a pipeline stage.
func (p *Pipeline) ObserveStage(stage string, start time.Time) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// ModelCall counts a model call; ok reports whether it produced a reply.
func (p *Pipeline) ModelCall(purpose string, ok bool) {
	if p == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	p.modelCalls.WithLabelValues(purpose, status).Inc()
}

// Rows records the size of a query result.
func (p *Pipeline) Rows(n int) {
	if p == nil {
		return
	}
	p.rowsReturned.Observe(float64(n))
}

// BreakerState sets the breaker gauge.
func (p *Pipeline) BreakerState(state int) {
	if p == nil {
		return
	}
	p.breakerState.Set(float64(state))
}

// Vocabulary records the number of cached names of a kind.
func (p *Pipeline) Vocabulary(kind string, n int) {
	if p == nil {
		return
	}
	p.vocabulary.WithLabelValues(kind).Set(float64(n))
}
