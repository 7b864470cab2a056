// Package metrics provides Prometheus instrumentation for QueryGate.
// All collectors register automatically on package init via promauto.
//
// # Basic Usage
//
//	// Count a completed query
//	metrics.QueriesTotal.WithLabelValues("postgres", "success").Inc()
//
//	// Time an operation
//	timer := metrics.NewTimer("execute")
//	result, err := run(query)
//	metrics.QueryDuration.WithLabelValues("postgres").Observe(timer.Stop().Seconds())
//
//	// Publish pool state
//	metrics.UpdatePoolStats("postgres", stats)
//
// The metrics endpoint is exposed with promhttp by cmd/querygate when
// observability.enable_metrics is set.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/querygate/querygate/pkg/pool"
)

var (
	// QueriesTotal counts executed queries.
	// Labels: backend (engine name), status (success/failure)
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querygate_queries_total",
			Help: "Total number of queries executed",
		},
		[]string{"backend", "status"},
	)

	// ValidationRejections counts queries rejected by the security gate,
	// labeled with the rejection reason.
	ValidationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querygate_validation_rejections_total",
			Help: "Total number of queries rejected by validation",
		},
		[]string{"reason"},
	)

	// QueryDuration tracks end-to-end query execution time in seconds.
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "querygate_query_duration_seconds",
			Help: "Query execution time in seconds",
			Buckets: []float64{
				0.001, // 1ms - cached lookups
				0.005, // 5ms - indexed reads
				0.025, // 25ms - typical reads
				0.1,   // 100ms - scans
				0.5,   // 500ms - heavy scans
				1,     // 1s
				5,     // 5s - analytical queries
				30,    // 30s - worst case before timeouts
			},
		},
		[]string{"backend"},
	)

	// AcquireWait tracks how long callers waited to get a pooled connection.
	AcquireWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "querygate_pool_acquire_wait_seconds",
			Help: "Time spent waiting to acquire a pooled connection",
			Buckets: []float64{
				0.0001, // 100μs - idle hit
				0.001,  // 1ms
				0.01,   // 10ms
				0.1,    // 100ms
				1,      // 1s - contended
				10,     // 10s
				30,     // 30s - at the acquire timeout
			},
		},
		[]string{"backend"},
	)

	// PoolLive tracks existing pooled connections, checked out included.
	PoolLive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "querygate_pool_live_connections",
			Help: "Number of live pooled connections",
		},
		[]string{"backend"},
	)

	// PoolIdle tracks connections waiting in the pool.
	PoolIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "querygate_pool_idle_connections",
			Help: "Number of idle pooled connections",
		},
		[]string{"backend"},
	)

	// PoolExhaustions counts acquire attempts that failed because the pool
	// was at capacity for the whole acquire timeout.
	PoolExhaustions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querygate_pool_exhaustions_total",
			Help: "Total number of acquire attempts that found the pool exhausted",
		},
		[]string{"backend"},
	)

	// RowsReturned tracks result set sizes after truncation.
	RowsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querygate_rows_returned",
			Help:    "Rows returned per query after row limiting",
			Buckets: []float64{0, 1, 10, 100, 1000, 10000},
		},
		[]string{"backend"},
	)
)

// UpdatePoolStats publishes a pool snapshot to the live and idle gauges.
func UpdatePoolStats(backend string, stats pool.Stats) {
	PoolLive.WithLabelValues(backend).Set(float64(stats.Live))
	PoolIdle.WithLabelValues(backend).Set(float64(stats.Idle))
}

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop returns the elapsed duration since creation. The timer can be
// stopped multiple times, each returning the total elapsed time.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
