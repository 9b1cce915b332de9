package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// GridServiceMetrics instruments the GridService contract.
type GridServiceMetrics struct {
	eventsCreated       *prometheus.CounterVec
	participations      prometheus.Counter
	rewardsDistributed  prometheus.Counter
	rewardVolume        prometheus.Counter
	autoTriggers        *prometheus.CounterVec
	rateLimited         prometheus.Counter
	securityEvents      *prometheus.CounterVec
}

var (
	gridOnce     sync.Once
	gridRegistry *GridServiceMetrics
)

func GridService() *GridServiceMetrics {
	gridOnce.Do(func() {
		gridRegistry = &GridServiceMetrics{
			eventsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dergrid_gridservice_events_created_total",
				Help: "Count of grid events created by type.",
			}, []string{"event_type"}),
			participations: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "dergrid_gridservice_participations_total",
				Help: "Count of participate_in_event calls accepted.",
			}),
			rewardsDistributed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "dergrid_gridservice_rewards_distributed_total",
				Help: "Count of successful reward distributions.",
			}),
			rewardVolume: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "dergrid_gridservice_reward_volume_base_units",
				Help: "Cumulative minted reward amount in base units.",
			}),
			autoTriggers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dergrid_gridservice_auto_triggers_total",
				Help: "Count of auto-trigger rule firings by rule name.",
			}, []string{"rule"}),
			rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "dergrid_gridservice_signal_rate_limited_total",
				Help: "Count of ingest_grid_signal calls rejected by the per-feed rate limiter.",
			}),
			securityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dergrid_gridservice_security_violations_total",
				Help: "Count of unauthorized operation attempts by operation name.",
			}, []string{"operation"}),
		}
		prometheus.MustRegister(
			gridRegistry.eventsCreated,
			gridRegistry.participations,
			gridRegistry.rewardsDistributed,
			gridRegistry.rewardVolume,
			gridRegistry.autoTriggers,
			gridRegistry.rateLimited,
			gridRegistry.securityEvents,
		)
	})
	return gridRegistry
}

func (m *GridServiceMetrics) ObserveEventCreated(eventType string) {
	if m == nil {
		return
	}
	m.eventsCreated.WithLabelValues(eventType).Inc()
}

func (m *GridServiceMetrics) IncParticipation() {
	if m == nil {
		return
	}
	m.participations.Inc()
}

func (m *GridServiceMetrics) ObserveRewardDistributed(amount float64) {
	if m == nil {
		return
	}
	m.rewardsDistributed.Inc()
	m.rewardVolume.Add(amount)
}

func (m *GridServiceMetrics) ObserveAutoTrigger(rule string) {
	if m == nil {
		return
	}
	m.autoTriggers.WithLabelValues(rule).Inc()
}

func (m *GridServiceMetrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *GridServiceMetrics) ObserveSecurityViolation(operation string) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.securityEvents.WithLabelValues(operation).Inc()
}
