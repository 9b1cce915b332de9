// Package metrics exposes per-contract Prometheus instrumentation: a
// sync.Once singleton registry per contract, CounterVec/GaugeVec metrics,
// nil-receiver-safe observe methods so instrumentation is optional at
// every call site.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// TokenMetrics instruments the Token contract.
type TokenMetrics struct {
	transfers      *prometheus.CounterVec
	mintVolume     *prometheus.CounterVec
	burnVolume     *prometheus.CounterVec
	securityEvents *prometheus.CounterVec
	totalSupply    prometheus.Gauge
}

var (
	tokenOnce     sync.Once
	tokenRegistry *TokenMetrics
)

// Token returns the process-wide Token metrics singleton, registering it
// with the default Prometheus registry on first use.
func Token() *TokenMetrics {
	tokenOnce.Do(func() {
		tokenRegistry = &TokenMetrics{
			transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dergrid_token_transfers_total",
				Help: "Count of successful Token transfers by kind (transfer, transfer_from).",
			}, []string{"kind"}),
			mintVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dergrid_token_mint_volume_base_units",
				Help: "Cumulative minted amount in base units, labeled by caller role.",
			}, []string{"role"}),
			burnVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dergrid_token_burn_volume_base_units",
				Help: "Cumulative burned amount in base units, labeled by caller role.",
			}, []string{"role"}),
			securityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dergrid_token_security_violations_total",
				Help: "Count of unauthorized operation attempts by operation name.",
			}, []string{"operation"}),
			totalSupply: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "dergrid_token_total_supply",
				Help: "Current total supply in base units (float64, informational only).",
			}),
		}
		prometheus.MustRegister(
			tokenRegistry.transfers,
			tokenRegistry.mintVolume,
			tokenRegistry.burnVolume,
			tokenRegistry.securityEvents,
			tokenRegistry.totalSupply,
		)
	})
	return tokenRegistry
}

func (m *TokenMetrics) ObserveTransfer(kind string) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(kind).Inc()
}

func (m *TokenMetrics) ObserveMint(role string, amount float64) {
	if m == nil {
		return
	}
	m.mintVolume.WithLabelValues(role).Add(amount)
}

func (m *TokenMetrics) ObserveBurn(role string, amount float64) {
	if m == nil {
		return
	}
	m.burnVolume.WithLabelValues(role).Add(amount)
}

func (m *TokenMetrics) ObserveSecurityViolation(operation string) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.securityEvents.WithLabelValues(operation).Inc()
}

func (m *TokenMetrics) SetTotalSupply(amount float64) {
	if m == nil {
		return
	}
	m.totalSupply.Set(amount)
}
