package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors the checker updates during a run.
// All collectors are optional: a nil *Metrics disables collection entirely.
type Metrics struct {
	StatesDiscovered prometheus.Counter
	StatesDuplicated prometheus.Counter
	RulesFired       prometheus.Counter
	QueueDepth       prometheus.Gauge
}

// New builds the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StatesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "statecheck",
			Name:      "states_discovered_total",
			Help:      "Distinct states inserted into the seen set.",
		}),
		StatesDuplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "statecheck",
			Name:      "states_duplicated_total",
			Help:      "Candidate states discarded as content duplicates.",
		}),
		RulesFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "statecheck",
			Name:      "rules_fired_total",
			Help:      "Rule bodies applied to produce candidate states.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "statecheck",
			Name:      "queue_depth",
			Help:      "States currently awaiting expansion.",
		}),
	}
	reg.MustRegister(m.StatesDiscovered, m.StatesDuplicated, m.RulesFired, m.QueueDepth)
	return m
}

// Discovered records one newly inserted state.
func (m *Metrics) Discovered() {
	if m != nil {
		m.StatesDiscovered.Inc()
	}
}

// Duplicated records one candidate discarded as already seen.
func (m *Metrics) Duplicated() {
	if m != nil {
		m.StatesDuplicated.Inc()
	}
}

// Fired records one applied rule body.
func (m *Metrics) Fired() {
	if m != nil {
		m.RulesFired.Inc()
	}
}

// SetQueueDepth publishes the current frontier size.
func (m *Metrics) SetQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}
