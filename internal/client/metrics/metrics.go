// Package metrics holds Prometheus collectors for the client core. The set
// is deliberately small: enough to see where remote calls go, how often the
// caches answer locally, and how verification submissions end.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the client collectors.
type Metrics struct {
	APIRequests *prometheus.CounterVec
	CacheReads  *prometheus.CounterVec
	FlowSubmits *prometheus.CounterVec
}

// New registers the collectors on reg and returns them. A nil reg falls
// back to the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credlink_api_requests_total",
			Help: "Remote API calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		CacheReads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credlink_cache_reads_total",
			Help: "Resource cache reads by resource and result (hit, miss, corrupt)",
		}, []string{"resource", "result"}),
		FlowSubmits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credlink_flow_submits_total",
			Help: "Verification flow submissions by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveAPI records one remote call outcome. Safe on a nil receiver so
// metrics stay optional for embedders.
func (m *Metrics) ObserveAPI(operation, outcome string) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(operation, outcome).Inc()
}

// ObserveCacheRead records one cache read result. Safe on a nil receiver.
func (m *Metrics) ObserveCacheRead(resource, result string) {
	if m == nil {
		return
	}
	m.CacheReads.WithLabelValues(resource, result).Inc()
}

// ObserveFlowSubmit records one flow submission outcome. Safe on a nil
// receiver.
func (m *Metrics) ObserveFlowSubmit(outcome string) {
	if m == nil {
		return
	}
	m.FlowSubmits.WithLabelValues(outcome).Inc()
}
