// Package observability provides Prometheus metrics for monitoring.
// All record helpers are non-blocking and never influence control flow.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Post-trade queue
	PostChainQueued prometheus.Counter
	PostChainExec   prometheus.Counter

	// Quorum broadcast
	RPCQuorumSent    *prometheus.CounterVec
	RPCQuorumWin     *prometheus.CounterVec
	BlockhashRefresh *prometheus.CounterVec

	// Wallet resolver
	ResolverCacheHit prometheus.Counter
	ResolverLatency  prometheus.Histogram

	// Execution quality
	SlipAutoAdjustments prometheus.Counter
	EffectiveSlippage   prometheus.Histogram

	// Scheduler
	TicksTotal      *prometheus.CounterVec
	InstancesHalted prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "engine"
	}

	return &Metrics{
		PostChainQueued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "post_chain_queued_total",
			Help:      "Total number of post-trade tasks enqueued",
		}),
		PostChainExec: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "post_chain_exec_total",
			Help:      "Total number of post-trade actions executed",
		}),
		RPCQuorumSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_quorum_sent_total",
			Help:      "Total number of transactions submitted per endpoint",
		}, []string{"endpoint"}),
		RPCQuorumWin: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_quorum_win_total",
			Help:      "Total number of first-acknowledgement wins per endpoint",
		}, []string{"endpoint"}),
		BlockhashRefresh: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blockhash_refresh_total",
			Help:      "Total number of recent-blockhash cache refreshes per endpoint",
		}, []string{"endpoint"}),
		ResolverCacheHit: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_cache_hit_total",
			Help:      "Total number of armed-session cache hits in the key resolver",
		}),
		ResolverLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolver_latency_ms",
			Help:      "Wallet key resolution latency in milliseconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		}),
		SlipAutoAdjustments: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slip_auto_adjustments_total",
			Help:      "Total number of automatic slippage-tolerance adjustments",
		}),
		EffectiveSlippage: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "effective_slippage_pct",
			Help:      "Realized slippage as a percentage of quoted price",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		TicksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total number of scheduler ticks by outcome",
		}, []string{"outcome"}),
		InstancesHalted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_halted_total",
			Help:      "Total number of instances halted",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Default is the default metrics instance.
var Default = NewMetrics("")

// RecordPostChainQueued increments the queued post-trade task counter.
func RecordPostChainQueued() {
	Default.PostChainQueued.Inc()
}

// RecordPostChainExec increments the executed post-trade action counter.
func RecordPostChainExec() {
	Default.PostChainExec.Inc()
}

// RecordQuorumSent records a transaction submission to an endpoint.
func RecordQuorumSent(endpoint string) {
	Default.RPCQuorumSent.WithLabelValues(endpoint).Inc()
}

// RecordQuorumWin records the endpoint whose acknowledgement settled first.
func RecordQuorumWin(endpoint string) {
	Default.RPCQuorumWin.WithLabelValues(endpoint).Inc()
}

// RecordBlockhashRefresh records a blockhash cache refresh for an endpoint.
func RecordBlockhashRefresh(endpoint string) {
	Default.BlockhashRefresh.WithLabelValues(endpoint).Inc()
}

// RecordResolverCacheHit records an armed-session cache hit.
func RecordResolverCacheHit() {
	Default.ResolverCacheHit.Inc()
}

// RecordResolverLatency records key resolution latency in milliseconds.
func RecordResolverLatency(ms float64) {
	Default.ResolverLatency.Observe(ms)
}

// RecordSlipAdjustment records an automatic slippage adjustment.
func RecordSlipAdjustment() {
	Default.SlipAutoAdjustments.Inc()
}

// RecordEffectiveSlippage records realized slippage in percent.
func RecordEffectiveSlippage(pct float64) {
	Default.EffectiveSlippage.Observe(pct)
}

// RecordTick records a scheduler tick outcome ("ok", "skip", "error").
func RecordTick(outcome string) {
	Default.TicksTotal.WithLabelValues(outcome).Inc()
}

// RecordInstanceHalted records an instance halt.
func RecordInstanceHalted() {
	Default.InstancesHalted.Inc()
}
