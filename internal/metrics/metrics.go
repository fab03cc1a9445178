package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "foodcart"

// Metrics groups the collectors the service updates.
type Metrics struct {
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	CartMutations       *prometheus.CounterVec
	CartRetries         prometheus.Counter
	CartCache           *prometheus.CounterVec
	SettlementVerdicts  *prometheus.CounterVec
	GatewayCalls        *prometheus.CounterVec
	OrdersCommitted     *prometheus.CounterVec
}

// New registers every collector on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		CartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cart", Name: "mutations_total",
			Help: "Cart mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		CartRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cart", Name: "version_conflicts_total",
			Help: "Optimistic update attempts lost to a concurrent writer.",
		}),
		CartCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cart", Name: "cache_lookups_total",
			Help: "Cart cache lookups by result.",
		}, []string{"result"}),
		SettlementVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "payment", Name: "settlement_verdicts_total",
			Help: "Settlement signature checks by verdict.",
		}, []string{"verdict"}),
		GatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "payment", Name: "gateway_calls_total",
			Help: "Payment gateway calls by outcome.",
		}, []string{"outcome"}),
		OrdersCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "order", Name: "commits_total",
			Help: "Order commits by outcome (created, replayed).",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.HTTPRequests,
		m.HTTPRequestDuration,
		m.CartMutations,
		m.CartRetries,
		m.CartCache,
		m.SettlementVerdicts,
		m.GatewayCalls,
		m.OrdersCommitted,
	)
	return m
}

// NewNop returns collectors registered on a private registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
