package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics
var (
	MetricResolveTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshrouter_resolve_total",
			Help: "Total number of resolve calls by outcome",
		},
		[]string{"outcome"},
	)
	MetricFaultsInjected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshrouter_faults_injected_total",
			Help: "Total number of injected faults by kind",
		},
		[]string{"kind"},
	)
	MetricSnapshotSwaps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meshrouter_snapshot_swaps_total",
			Help: "Total number of rule-set snapshot swaps",
		},
	)
	MetricRulesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "meshrouter_rules_active",
			Help: "Number of rules in the active snapshot",
		},
	)
)

// InitMetrics registers Prometheus metrics
func InitMetrics() {
	prometheus.MustRegister(MetricResolveTotal)
	prometheus.MustRegister(MetricFaultsInjected)
	prometheus.MustRegister(MetricSnapshotSwaps)
	prometheus.MustRegister(MetricRulesActive)
}
