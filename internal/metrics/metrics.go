// Package metrics wires the pipeline's counters into a prometheus
// Registerer: built once at startup and passed by reference into the
// components that increment them.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter/gauge the core increments. All fields are
// exported so components call .Inc/.Set (or .WithLabelValues on the two
// labelled *prometheus.CounterVec fields, QueueDrops and RPCFailures)
// directly without a setter method per metric.
type Metrics struct {
	TxsObserved      prometheus.Counter
	SwapsClassified  prometheus.Counter
	OpportunitiesFound prometheus.Counter
	QueueDrops       *prometheus.CounterVec
	RPCFailures      *prometheus.CounterVec
	NearMissBestBps  prometheus.Gauge
	RefreshFailures  prometheus.Counter
	RefreshSuccesses prometheus.Counter
}

// New registers every metric against reg and returns the bundle. reg is
// typically prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TxsObserved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mevcore_txs_observed_total",
			Help: "Pending transactions observed by the mempool ingestor.",
		}),
		SwapsClassified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mevcore_swaps_classified_total",
			Help: "Pending transactions classified as swaps in enhanced mode.",
		}),
		OpportunitiesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mevcore_opportunities_found_total",
			Help: "Profitable cyclic opportunities emitted by the search workers.",
		}),
		QueueDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mevcore_queue_drops_total",
			Help: "Events dropped because a bounded hot-path queue was full.",
		}, []string{"queue"}),
		RPCFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mevcore_rpc_failures_total",
			Help: "Transient RPC/WebSocket failures, by call.",
		}, []string{"call"}),
		NearMissBestBps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mevcore_near_miss_best_bps",
			Help: "Best profit ratio (bps) observed among rejected candidates in the last scan.",
		}),
		RefreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mevcore_pool_refresh_failures_total",
			Help: "Pool reserve refreshes that failed and left the pool unchanged.",
		}),
		RefreshSuccesses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mevcore_pool_refresh_successes_total",
			Help: "Pool reserve refreshes applied atomically.",
		}),
	}
	reg.MustRegister(
		m.TxsObserved, m.SwapsClassified, m.OpportunitiesFound,
		m.QueueDrops, m.RPCFailures, m.NearMissBestBps,
		m.RefreshFailures, m.RefreshSuccesses,
	)
	return m
}
