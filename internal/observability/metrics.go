// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Job metrics
	JobRunsTotal     *prometheus.CounterVec
	JobAttemptsTotal *prometheus.CounterVec
	JobDuration      *prometheus.HistogramVec
	JobSkippedTotal  *prometheus.CounterVec

	// Market data metrics
	MarketDataLatency *prometheus.HistogramVec
	MarketDataErrors  *prometheus.CounterVec

	// Selection metrics
	StageSurvivors  *prometheus.GaugeVec
	ReconcileOps    *prometheus.CounterVec
	ActiveTokens    prometheus.Gauge
	TokensRefreshed prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_selector"
	}

	return &Metrics{
		JobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "runs_total",
			Help:      "Total number of supervised job runs by final status",
		}, []string{"job", "status"}),
		JobAttemptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "attempts_total",
			Help:      "Total number of job attempts by result",
		}, []string{"job", "result"}),
		JobDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "duration_seconds",
			Help:      "Supervised job run duration in seconds, all attempts included",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"job"}),
		JobSkippedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "skipped_total",
			Help:      "Total number of job triggers skipped because a run was in flight",
		}, []string{"job", "reason"}),

		MarketDataLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "request_duration_seconds",
			Help:      "Market data API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		MarketDataErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "errors_total",
			Help:      "Total number of market data API errors by kind",
		}, []string{"endpoint", "kind"}),

		StageSurvivors: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "stage_survivors",
			Help:      "Tokens surviving each filter stage in the last run",
		}, []string{"stage"}),
		ReconcileOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "reconcile_ops_total",
			Help:      "Total number of reconciliation mutations by operation",
		}, []string{"op"}),
		ActiveTokens: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "active_tokens",
			Help:      "Number of active tokens after the last successful reconciliation",
		}),
		TokensRefreshed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "tokens_refreshed_total",
			Help:      "Total number of token financial snapshots written",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRun: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last successful run per job",
		}, []string{"job"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordJobRun records the final status of a supervised run.
func RecordJobRun(job, status string, durationSeconds float64) {
	DefaultMetrics.JobRunsTotal.WithLabelValues(job, status).Inc()
	DefaultMetrics.JobDuration.WithLabelValues(job).Observe(durationSeconds)
	if status == "succeeded" {
		DefaultMetrics.LastSuccessfulRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	}
}

// RecordJobAttempt records one attempt result ("ok" or "error").
func RecordJobAttempt(job, result string) {
	DefaultMetrics.JobAttemptsTotal.WithLabelValues(job, result).Inc()
}

// RecordJobSkipped records a trigger that did not start a run.
func RecordJobSkipped(job, reason string) {
	DefaultMetrics.JobSkippedTotal.WithLabelValues(job, reason).Inc()
}

// RecordMarketDataCall records market data request latency and error kind.
// kind is empty on success.
func RecordMarketDataCall(endpoint, kind string, seconds float64) {
	DefaultMetrics.MarketDataLatency.WithLabelValues(endpoint).Observe(seconds)
	if kind != "" {
		DefaultMetrics.MarketDataErrors.WithLabelValues(endpoint, kind).Inc()
	}
}

// RecordStageSurvivors records how many tokens survived a filter stage.
func RecordStageSurvivors(stage string, n int) {
	DefaultMetrics.StageSurvivors.WithLabelValues(stage).Set(float64(n))
}

// RecordReconcile records reconciliation mutation counts and the resulting active set size.
func RecordReconcile(created, activated, deactivated, active int) {
	DefaultMetrics.ReconcileOps.WithLabelValues("create").Add(float64(created))
	DefaultMetrics.ReconcileOps.WithLabelValues("activate").Add(float64(activated))
	DefaultMetrics.ReconcileOps.WithLabelValues("deactivate").Add(float64(deactivated))
	DefaultMetrics.ActiveTokens.Set(float64(active))
}

// RecordTokenRefreshed increments the refreshed tokens counter.
func RecordTokenRefreshed() {
	DefaultMetrics.TokensRefreshed.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
