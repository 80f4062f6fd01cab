// Package metrics exposes request and security-stage metrics in Prometheus
// format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bulwark"

// Registry tracks request metrics on its own Prometheus registry.
type Registry struct {
	registry  *prometheus.Registry
	decisions *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inFlight  prometheus.Gauge
	breaker   *prometheus.GaugeVec
}

// New creates a registry with Go runtime and process collectors.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Registry{
		registry: reg,
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "security_decisions_total",
			Help:      "Security stage outcomes by stage and outcome.",
		}, []string{"stage", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by response status.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"status"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		breaker: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"name"}),
	}
}

// Start marks the start of a request.
func (r *Registry) Start() time.Time {
	r.inFlight.Inc()
	return time.Now()
}

// End records a completed request.
func (r *Registry) End(start time.Time, status int) {
	r.inFlight.Dec()
	r.duration.WithLabelValues(strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}

// RecordDecision counts one security stage outcome.
func (r *Registry) RecordDecision(stage, outcome string) {
	r.decisions.WithLabelValues(stage, outcome).Inc()
}

// SetBreakerState publishes a circuit breaker state.
func (r *Registry) SetBreakerState(name string, state int) {
	r.breaker.WithLabelValues(name).Set(float64(state))
}

// Gatherer exposes the underlying registry, e.g. for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in Prometheus text format.
func Handler(registry *Registry) http.Handler {
	if registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(registry.registry, promhttp.HandlerOpts{Registry: registry.registry})
}
