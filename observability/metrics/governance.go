package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// GovernanceMetrics instruments the Governance contract.
type GovernanceMetrics struct {
	proposalsCreated  *prometheus.CounterVec
	proposalsExecuted prometheus.Counter
	proposalsDefeated prometheus.Counter
	proposalsExpired  prometheus.Counter
	votesCast         prometheus.Counter
	executionFailures *prometheus.CounterVec
}

var (
	govOnce     sync.Once
	govRegistry *GovernanceMetrics
)

func Governance() *GovernanceMetrics {
	govOnce.Do(func() {
		govRegistry = &GovernanceMetrics{
			proposalsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dergrid_governance_proposals_created_total",
				Help: "Count of proposals created by kind.",
			}, []string{"kind"}),
			proposalsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "dergrid_governance_proposals_executed_total",
				Help: "Count of proposals that reached the Executed state.",
			}),
			proposalsDefeated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "dergrid_governance_proposals_defeated_total",
				Help: "Count of proposals that finalized to Defeated.",
			}),
			proposalsExpired: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "dergrid_governance_proposals_expired_total",
				Help: "Count of proposals that exhausted execution attempts or their expiry window.",
			}),
			votesCast: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "dergrid_governance_votes_cast_total",
				Help: "Count of votes cast across all proposals.",
			}),
			executionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dergrid_governance_execution_failures_total",
				Help: "Count of failed downstream dispatch attempts by proposal kind.",
			}, []string{"kind"}),
		}
		prometheus.MustRegister(
			govRegistry.proposalsCreated,
			govRegistry.proposalsExecuted,
			govRegistry.proposalsDefeated,
			govRegistry.proposalsExpired,
			govRegistry.votesCast,
			govRegistry.executionFailures,
		)
	})
	return govRegistry
}

func (m *GovernanceMetrics) ObserveProposalCreated(kind string) {
	if m == nil {
		return
	}
	m.proposalsCreated.WithLabelValues(kind).Inc()
}

func (m *GovernanceMetrics) IncExecuted() {
	if m == nil {
		return
	}
	m.proposalsExecuted.Inc()
}

func (m *GovernanceMetrics) IncDefeated() {
	if m == nil {
		return
	}
	m.proposalsDefeated.Inc()
}

func (m *GovernanceMetrics) IncExpired() {
	if m == nil {
		return
	}
	m.proposalsExpired.Inc()
}

func (m *GovernanceMetrics) IncVoteCast() {
	if m == nil {
		return
	}
	m.votesCast.Inc()
}

func (m *GovernanceMetrics) ObserveExecutionFailure(kind string) {
	if m == nil {
		return
	}
	m.executionFailures.WithLabelValues(kind).Inc()
}
