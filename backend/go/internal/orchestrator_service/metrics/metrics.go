package metrics

import (
	"time"

	"AgentHub/backend/go/internal/models"
	"AgentHub/backend/go/pkg/circuitbreaker"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agenthub"

// Metrics exposes Prometheus collectors for the orchestration pipeline and the provider clients.
type Metrics struct {
	tasksSubmitted   prometheus.Counter
	tasksFinished    *prometheus.CounterVec
	tasksInFlight    prometheus.Gauge
	agentExecutions  *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	synthesis        *prometheus.CounterVec
	breakerState     *prometheus.GaugeVec
}

// MustNewMetrics constructs the collectors and registers them with reg.
// Registration errors panic, mirroring promauto.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		tasksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "tasks_submitted_total",
			Help:      "Number of tasks accepted for processing.",
		}),
		tasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "tasks_finished_total",
			Help:      "Number of tasks that reached a terminal state.",
		}, []string{"status"}),
		tasksInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "tasks_in_flight",
			Help:      "Number of tasks currently being processed.",
		}),
		agentExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "agent_executions_total",
			Help:      "Agent executions by agent, provider and outcome.",
		}, []string{"agent", "provider", "outcome"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Latency of provider generation calls.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		}, []string{"provider", "outcome"}),
		synthesis: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "synthesis_total",
			Help:      "Synthesis passes by outcome.",
		}, []string{"outcome"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "circuit_breaker_state",
			Help:      "Provider circuit breaker state (0 closed, 1 open, 2 half-open).",
		}, []string{"provider"}),
	}
	reg.MustRegister(
		m.tasksSubmitted,
		m.tasksFinished,
		m.tasksInFlight,
		m.agentExecutions,
		m.providerDuration,
		m.synthesis,
		m.breakerState,
	)
	return m
}

// TaskSubmitted counts a new task and marks it in flight.
func (m *Metrics) TaskSubmitted() {
	m.tasksSubmitted.Inc()
	m.tasksInFlight.Inc()
}

// TaskFinished records a terminal status and releases the in-flight slot.
func (m *Metrics) TaskFinished(status models.TaskStatus) {
	m.tasksFinished.WithLabelValues(string(status)).Inc()
	m.tasksInFlight.Dec()
}

// AgentExecuted records the outcome of one agent run.
func (m *Metrics) AgentExecuted(agentID string, provider models.Provider, outcome string) {
	m.agentExecutions.WithLabelValues(agentID, string(provider), outcome).Inc()
}

// SynthesisFinished records the outcome of a synthesis pass.
func (m *Metrics) SynthesisFinished(outcome string) {
	m.synthesis.WithLabelValues(outcome).Inc()
}

// ObserveProviderCall records the latency of one provider call.
func (m *Metrics) ObserveProviderCall(provider models.Provider, outcome string, elapsed time.Duration) {
	m.providerDuration.WithLabelValues(string(provider), outcome).Observe(elapsed.Seconds())
}

// ObserveBreakerState exports the breaker state of a provider.
func (m *Metrics) ObserveBreakerState(provider models.Provider, state circuitbreaker.State) {
	m.breakerState.WithLabelValues(string(provider)).Set(float64(state))
}
