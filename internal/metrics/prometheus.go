package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sjzar/regionwatch/internal/model"
)

const DefaultNamespace = "regionwatch"

// Prometheus implements Collector on a private registry.
type Prometheus struct {
	polls        *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	regionTable  prometheus.Gauge
	heartbeats   *prometheus.CounterVec
	updateChecks *prometheus.CounterVec

	registry *prometheus.Registry
}

func NewPrometheus(namespace string) *Prometheus {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	p := &Prometheus{
		registry: prometheus.NewRegistry(),
	}

	p.polls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watcher_polls_total",
			Help:      "Total number of watcher poll ticks",
		},
		[]string{"process"},
	)

	p.transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_state_transitions_total",
			Help:      "Total number of emitted process state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	p.regionTable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "region_table_prefixes",
			Help:      "Number of prefixes in the loaded region table",
		},
	)

	p.heartbeats = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_check_heartbeats_total",
			Help:      "Total number of published process-check heartbeats",
		},
		[]string{"state"},
	)

	p.updateChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_checks_total",
			Help:      "Total number of update checks by outcome",
		},
		[]string{"status"},
	)

	p.registry.MustRegister(
		p.polls,
		p.transitions,
		p.regionTable,
		p.heartbeats,
		p.updateChecks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return p
}

func (p *Prometheus) WatcherPoll(found bool) {
	label := "absent"
	if found {
		label = "found"
	}
	p.polls.WithLabelValues(label).Inc()
}

func (p *Prometheus) StateTransition(from, to model.ProcessState) {
	p.transitions.WithLabelValues(string(from.Status), string(to.Status)).Inc()
}

func (p *Prometheus) RegionTableLoaded(prefixes int) {
	p.regionTable.Set(float64(prefixes))
}

func (p *Prometheus) Heartbeat(state model.ProcessState) {
	p.heartbeats.WithLabelValues(string(state.Status)).Inc()
}

func (p *Prometheus) UpdateCheck(state model.UpdaterState) {
	p.updateChecks.WithLabelValues(string(state.Status)).Inc()
}

// Registry returns the registry for HTTP handler setup
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

var _ Collector = (*Prometheus)(nil)
