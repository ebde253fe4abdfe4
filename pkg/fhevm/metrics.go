package fhevm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records client and adapter activity. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	bootstrapCount  *prometheus.CounterVec
	cacheHitCount   prometheus.Counter
	operationCount  *prometheus.CounterVec
	operationTimeMS *prometheus.HistogramVec
}

// NewMetrics creates and registers the fhevm collectors on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := Metrics{
		bootstrapCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fhevm_bootstrap_count",
				Help: "Number of engine bootstraps by outcome",
			},
			[]string{"outcome"},
		),
		cacheHitCount: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fhevm_instance_cache_hit_count",
				Help: "Number of Init calls served from the instance cache",
			},
		),
		operationCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fhevm_operation_count",
				Help: "Number of adapter operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		operationTimeMS: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fhevm_operation_latency_ms",
				Help:    "Latency of adapter operations in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"operation"},
		),
	}

	registerer.MustRegister(m.bootstrapCount)
	registerer.MustRegister(m.cacheHitCount)
	registerer.MustRegister(m.operationCount)
	registerer.MustRegister(m.operationTimeMS)

	return &m
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *Metrics) observeBootstrap(err error) {
	if m == nil {
		return
	}
	m.bootstrapCount.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) observeCacheHit() {
	if m == nil {
		return
	}
	m.cacheHitCount.Inc()
}

// ObserveOperation records one adapter call. Bindings use it to report the
// operations they dispatch.
func (m *Metrics) ObserveOperation(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operationCount.WithLabelValues(op, outcome(err)).Inc()
	m.operationTimeMS.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000)
}
