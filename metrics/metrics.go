// Package metrics счетчики Prometheus для жизненного цикла предложений.
package metrics

import (
	"PinguinGuard/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics безопасен для nil-получателя: без реестра счетчики просто не пишутся.
type Metrics struct {
	transitions       *prometheus.CounterVec
	downgradesBlocked prometheus.Counter
	emergencyChanges  *prometheus.CounterVec
}

func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pinguin_proposal_transitions_total",
			Help: "Proposal status transitions by target status",
		}, []string{"to"}),
		downgradesBlocked: factory.NewCounter(prometheus.CounterOpts{
			Name: "pinguin_permission_downgrades_blocked_total",
			Help: "Guardian permission downgrades blocked by custody protection",
		}),
		emergencyChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pinguin_emergency_changes_total",
			Help: "Safety increases applied immediately without a proposal",
		}, []string{"change_type"}),
	}
}

func (m *Metrics) Transition(to models.ProposalStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(to)).Inc()
}

func (m *Metrics) DowngradeBlocked() {
	if m == nil {
		return
	}
	m.downgradesBlocked.Inc()
}

func (m *Metrics) EmergencyApplied(changeType models.ChangeType) {
	if m == nil {
		return
	}
	m.emergencyChanges.WithLabelValues(string(changeType)).Inc()
}
