// Package metrics exposes Prometheus counters for the proposal lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK       = "ok"
	OutcomeNoop     = "noop"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
)

var (
	transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "proposal_transitions_total",
		Help:      "Proposal lifecycle operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "notifications_total",
		Help:      "Lifecycle notifications handed to the dispatcher.",
	}, []string{"event", "outcome"})

	sweepExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "sweep_expired_total",
		Help:      "Proposals expired by the scheduled sweep.",
	})

	sweepOverdue = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "portal",
		Name:      "sweep_overdue_total",
		Help:      "Invoices marked overdue by the scheduled sweep.",
	})
)

func ObserveTransition(operation, outcome string) {
	transitions.WithLabelValues(operation, outcome).Inc()
}

func ObserveNotification(event, outcome string) {
	notifications.WithLabelValues(event, outcome).Inc()
}

func AddExpired(n int) {
	sweepExpired.Add(float64(n))
}

func AddOverdue(n int) {
	sweepOverdue.Add(float64(n))
}
