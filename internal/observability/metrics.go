// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	CycleSkips    *prometheus.CounterVec

	// Holder metrics
	HoldersScanned  prometheus.Gauge
	HoldersEligible prometheus.Gauge
	HistoryFailures prometheus.Counter

	// Flow metrics
	RevenueClaimedLamports prometheus.Counter
	ReserveSpentLamports   prometheus.Counter
	TokensSent             prometheus.Counter
	TokensBurned           prometheus.Counter

	// Latency metrics
	RPCCallLatency  *prometheus.HistogramVec
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
	CurrentCycleNumber  prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "hope_protocol"
	}

	return &Metrics{
		// Cycle metrics
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "runs_total",
			Help:      "Total number of redistribution cycles by outcome",
		}, []string{"outcome"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of a full redistribution cycle",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		CycleSkips: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "skips_total",
			Help:      "Total number of skipped cycles by reason",
		}, []string{"reason"}),

		// Holder metrics
		HoldersScanned: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "holders",
			Name:      "scanned",
			Help:      "Number of holders found in the latest scan",
		}),
		HoldersEligible: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "holders",
			Name:      "eligible",
			Help:      "Number of holders ranked in the latest cycle",
		}),
		HistoryFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "holders",
			Name:      "history_failures_total",
			Help:      "Total number of holders excluded because history could not be fetched",
		}),

		// Flow metrics
		RevenueClaimedLamports: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "revenue_claimed_lamports_total",
			Help:      "Total lamports of protocol revenue claimed",
		}),
		ReserveSpentLamports: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "reserve_spent_lamports_total",
			Help:      "Total lamports handed to the aggregator for acquisitions",
		}),
		TokensSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "tokens_sent_total",
			Help:      "Total raw token units sent to selected holders",
		}),
		TokensBurned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flow",
			Name:      "tokens_burned_total",
			Help:      "Total raw token units destroyed",
		}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_duration_seconds",
			Help:      "RPC call latency by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last completed cycle",
		}),
		CurrentCycleNumber: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "current_cycle_number",
			Help:      "Number of the most recently started cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCycle records a finished cycle.
func RecordCycle(outcome string, durationSeconds float64) {
	DefaultMetrics.CyclesTotal.WithLabelValues(outcome).Inc()
	DefaultMetrics.CycleDuration.Observe(durationSeconds)
}

// RecordSkip records a skipped cycle with its reason.
func RecordSkip(reason string) {
	DefaultMetrics.CycleSkips.WithLabelValues(reason).Inc()
}

// UpdateHolderCounts updates the scan and ranking gauges.
func UpdateHolderCounts(scanned, eligible int) {
	DefaultMetrics.HoldersScanned.Set(float64(scanned))
	DefaultMetrics.HoldersEligible.Set(float64(eligible))
}

// RecordHistoryFailure counts a holder dropped for unreachable history.
func RecordHistoryFailure() {
	DefaultMetrics.HistoryFailures.Inc()
}

// RecordClaim records claimed revenue.
func RecordClaim(lamports uint64) {
	DefaultMetrics.RevenueClaimedLamports.Add(float64(lamports))
}

// RecordDistribution records the acquisition spend and the split amounts.
func RecordDistribution(reserveSpent, tokensSent, tokensBurned uint64) {
	DefaultMetrics.ReserveSpentLamports.Add(float64(reserveSpent))
	DefaultMetrics.TokensSent.Add(float64(tokensSent))
	DefaultMetrics.TokensBurned.Add(float64(tokensBurned))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// SetCycleProgress updates the health gauges at cycle boundaries.
func SetCycleProgress(cycleNumber int64, completedAtUnix int64) {
	DefaultMetrics.CurrentCycleNumber.Set(float64(cycleNumber))
	if completedAtUnix > 0 {
		DefaultMetrics.LastSuccessfulCycle.Set(float64(completedAtUnix))
	}
}
