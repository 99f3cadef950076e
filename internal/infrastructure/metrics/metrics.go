package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ledger"

// Metrics owns a private registry so tests can build as many as they like.
// Every recording method is safe on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	LoansCreated      *prometheus.CounterVec
	LoansTransitioned *prometheus.CounterVec
	MonitorCycles     prometheus.Counter
	MonitorAlerts     prometheus.Counter
	MonitorErrors     prometheus.Counter
	Notifications     *prometheus.CounterVec
	WorkflowConflicts *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		LoansCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loans_created_total",
			Help:      "Loan rows inserted, by initial status.",
		}, []string{"status"}),
		LoansTransitioned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loans_transitioned_total",
			Help:      "Loan rows moved out of pending, by target status.",
		}, []string{"to"}),
		MonitorCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_cycles_total",
			Help:      "Completed interest monitor scans.",
		}),
		MonitorAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_alerts_total",
			Help:      "Loans found over the high-interest threshold.",
		}),
		MonitorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_errors_total",
			Help:      "Monitor cycles that could not read the ledger.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Direct message attempts, by outcome.",
		}, []string{"outcome"}),
		WorkflowConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_conflicts_total",
			Help:      "Actions rejected because a conversation was already decided.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.LoansCreated,
		m.LoansTransitioned,
		m.MonitorCycles,
		m.MonitorAlerts,
		m.MonitorErrors,
		m.Notifications,
		m.WorkflowConflicts,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) LoanCreated(status string) {
	if m != nil {
		m.LoansCreated.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) LoansMoved(to string, n int) {
	if m != nil && n > 0 {
		m.LoansTransitioned.WithLabelValues(to).Add(float64(n))
	}
}

func (m *Metrics) MonitorCycle(alerts int, failed bool) {
	if m == nil {
		return
	}
	m.MonitorCycles.Inc()
	m.MonitorAlerts.Add(float64(alerts))
	if failed {
		m.MonitorErrors.Inc()
	}
}

func (m *Metrics) Notification(outcome string) {
	if m != nil {
		m.Notifications.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Conflict(kind string) {
	if m != nil {
		m.WorkflowConflicts.WithLabelValues(kind).Inc()
	}
}
