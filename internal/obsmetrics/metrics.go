// Package obsmetrics exposes pouchsim's Prometheus metrics: executor job
// latency, block-cache hit rate, and crash counters (SPEC_FULL.md §3's
// domain-stack table), plus the host API's own request/websocket counters.
package obsmetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	executorJobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pouchsim_executor_job_duration_seconds",
		Help:    "Time an executor job spent running against its worker's Cpu1",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	executorWorkerReplacements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pouchsim_executor_worker_replacements_total",
		Help: "Times a dead executor worker was replaced",
	})

	blockCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pouchsim_block_cache_hits_total",
		Help: "Execute-cache lookups that found an already-decoded block",
	})

	blockCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pouchsim_block_cache_misses_total",
		Help: "Execute-cache lookups that had to fetch and decode a block",
	})

	processCrashesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pouchsim_process_crashes_total",
		Help: "Process crashes observed while executing a step",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pouchsim_runs_total",
		Help: "Completed runs, by outcome",
	}, []string{"outcome"}) // "ok", "aborted", "error"

	httpRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pouchsim_http_request_duration_seconds",
		Help:    "HTTP request latency by route and method",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pouchsim_ws_connections_active",
		Help: "Currently open websocket run-stream connections",
	})
)

// RecordExecutorJob records one executor job's wall time.
func RecordExecutorJob(d time.Duration) { executorJobDuration.Observe(d.Seconds()) }

// RecordWorkerReplaced increments the dead-worker-replacement counter.
func RecordWorkerReplaced() { executorWorkerReplacements.Inc() }

// RecordBlockCacheLookup records one execute-cache lookup's outcome.
func RecordBlockCacheLookup(hit bool) {
	if hit {
		blockCacheHits.Inc()
		return
	}
	blockCacheMisses.Inc()
}

// RecordProcessCrash increments the process-crash counter.
func RecordProcessCrash() { processCrashesTotal.Inc() }

// RecordRunCompleted increments the per-outcome run counter.
func RecordRunCompleted(outcome string) { runsTotal.WithLabelValues(outcome).Inc() }

// RecordHTTPRequest records one HTTP request's latency.
func RecordHTTPRequest(method, route string, d time.Duration) {
	httpRequestLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// SetWSConnectionsActive sets the current open-websocket-connection gauge.
func SetWSConnectionsActive(n int) { wsConnectionsActive.Set(float64(n)) }

// Handler is the `/metrics` Prometheus exposition endpoint.
func Handler() http.Handler { return promhttp.Handler() }
