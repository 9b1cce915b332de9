package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// RegistryMetrics instruments the Registry contract.
type RegistryMetrics struct {
	devicesRegistered prometheus.Gauge
	stakeTotal        prometheus.Gauge
	slashes           *prometheus.CounterVec
	reputationUpdates *prometheus.CounterVec
	securityEvents    *prometheus.CounterVec
}

var (
	registryOnce     sync.Once
	registryRegistry *RegistryMetrics
)

func Registry() *RegistryMetrics {
	registryOnce.Do(func() {
		registryRegistry = &RegistryMetrics{
			devicesRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "dergrid_registry_devices_registered",
				Help: "Current count of active registered devices.",
			}),
			stakeTotal: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "dergrid_registry_stake_total_base_units",
				Help: "Sum of stake currently held at Registry's Token address.",
			}),
			slashes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dergrid_registry_slashes_total",
				Help: "Count of stake slashes by disposition (burned, treasury).",
			}, []string{"disposition"}),
			reputationUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dergrid_registry_reputation_updates_total",
				Help: "Count of device performance updates by outcome (success, failure).",
			}, []string{"outcome"}),
			securityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dergrid_registry_security_violations_total",
				Help: "Count of unauthorized operation attempts by operation name.",
			}, []string{"operation"}),
		}
		prometheus.MustRegister(
			registryRegistry.devicesRegistered,
			registryRegistry.stakeTotal,
			registryRegistry.slashes,
			registryRegistry.reputationUpdates,
			registryRegistry.securityEvents,
		)
	})
	return registryRegistry
}

func (m *RegistryMetrics) SetDevicesRegistered(n float64) {
	if m == nil {
		return
	}
	m.devicesRegistered.Set(n)
}

func (m *RegistryMetrics) SetStakeTotal(amount float64) {
	if m == nil {
		return
	}
	m.stakeTotal.Set(amount)
}

func (m *RegistryMetrics) ObserveSlash(disposition string) {
	if m == nil {
		return
	}
	m.slashes.WithLabelValues(disposition).Inc()
}

func (m *RegistryMetrics) ObserveReputationUpdate(success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.reputationUpdates.WithLabelValues(outcome).Inc()
}

func (m *RegistryMetrics) ObserveSecurityViolation(operation string) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.securityEvents.WithLabelValues(operation).Inc()
}
