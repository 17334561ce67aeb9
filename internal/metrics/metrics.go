package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal tracks backend attempts per backend and outcome
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_attempts_total",
			Help: "Total number of backend attempts",
		},
		[]string{"backend", "outcome"},
	)

	// AttemptLatency tracks how long single backend invocations take
	AttemptLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatcher_attempt_latency_seconds",
			Help:    "Backend invocation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	// DispatchesTotal tracks finished dispatches by result
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_dispatches_total",
			Help: "Total number of dispatches by result",
		},
		[]string{"kind", "result"},
	)

	// FallbacksTotal counts dispatches that needed more than one backend
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_fallbacks_total",
			Help: "Total number of dispatches that advanced past the first backend",
		},
		[]string{"kind"},
	)

	// DispatchAttempts tracks attempts needed per dispatch
	DispatchAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatcher_dispatch_attempts",
			Help:    "Number of attempts per dispatch",
			Buckets: []float64{1, 2, 3, 4, 6, 9, 12, 20},
		},
		[]string{"kind"},
	)

	// DBConnectionPoolUsage tracks history database pool usage percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatcher_db_connection_pool_usage",
			Help: "Percentage of open connections to max connections",
		},
	)

	// SnapshotsTotal tracks health snapshot writes by result
	SnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_health_snapshots_total",
			Help: "Total number of health snapshot writes",
		},
		[]string{"result"},
	)
)
