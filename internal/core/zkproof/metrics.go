package zkproof

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	zkOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zkproof_operations_total",
		Help: "Total number of zkproof operations by operation and result.",
	}, []string{"operation", "result"})
	zkOperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zkproof_operation_duration_seconds",
		Help:    "Duration of zkproof operations.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"operation"})
	zkSrsProvisionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zkproof_srs_provision_total",
		Help: "SRS provisioning outcomes by source (active, cache, derived, http).",
	}, []string{"source", "result"})
	zkDispatcherQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zkproof_dispatcher_queue_depth",
		Help: "Number of tasks waiting in the blocking-task dispatcher.",
	})
)

func init() {
	prometheus.MustRegister(
		zkOperationsTotal,
		zkOperationDuration,
		zkSrsProvisionTotal,
		zkDispatcherQueueDepth,
	)
}

// observeOperation 记录一次操作的结果与耗时
func observeOperation(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	zkOperationsTotal.WithLabelValues(op, result).Inc()
	zkOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// observeVerification 验证结果区分 valid / invalid / error
func observeVerification(start time.Time, valid bool, err error) {
	result := "invalid"
	switch {
	case err != nil:
		result = "error"
	case valid:
		result = "valid"
	}
	zkOperationsTotal.WithLabelValues(opVerify, result).Inc()
	zkOperationDuration.WithLabelValues(opVerify).Observe(time.Since(start).Seconds())
}
