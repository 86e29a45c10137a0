package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the simulation counters. It implements simulation.Progress,
// so a runner can report straight into it.
type Metrics struct {
	registry *prometheus.Registry

	TrialsTotal prometheus.Counter
	RunsTotal   *prometheus.CounterVec
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		TrialsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gosim_trials_total",
			Help: "Number of simulation trials completed",
		}),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gosim_runs_total",
				Help: "Number of simulation runs finished, by outcome",
			},
			[]string{"status"},
		),
	}
}

func (m *Metrics) TrialCompleted() {
	m.TrialsTotal.Inc()
}

func (m *Metrics) RunCompleted(_ int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
