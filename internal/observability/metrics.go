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
	// Stream metrics
	NotificationsReceived prometheus.Counter
	DecodeErrors          prometheus.Counter
	HighestSlotSeen       prometheus.Gauge

	// Detection metrics
	LaunchesDetected *prometheus.CounterVec
	LaunchesSkipped  *prometheus.CounterVec

	// Dispatch metrics
	Dispatches              *prometheus.CounterVec
	DispatchLatency         *prometheus.HistogramVec
	DetectToDispatchLatency prometheus.Histogram
	TradesLogged            *prometheus.CounterVec

	// Blockhash metrics
	BlockhashRefreshes *prometheus.CounterVec
	BlockhashAge       prometheus.Gauge

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "sniper"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	latencyBuckets := []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

	return &Metrics{
		NotificationsReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "notifications_received_total",
			Help:      "Total number of log notifications received",
		}),
		DecodeErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "decode_errors_total",
			Help:      "Total number of malformed notifications skipped",
		}),
		HighestSlotSeen: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "highest_slot_seen",
			Help:      "Highest Solana slot number seen",
		}),

		LaunchesDetected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detect",
			Name:      "launches_detected_total",
			Help:      "Total number of launches detected by kind",
		}, []string{"kind"}),
		LaunchesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detect",
			Name:      "launches_skipped_total",
			Help:      "Total number of notifications or launches skipped by reason",
		}, []string{"reason"}),

		Dispatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "transactions_total",
			Help:      "Total number of dispatch attempts by mode and status",
		}, []string{"mode", "status"}),
		DispatchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "latency_seconds",
			Help:      "Time from build to submission result in seconds",
			Buckets:   latencyBuckets,
		}, []string{"mode"}),
		DetectToDispatchLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "detect_to_dispatch_seconds",
			Help:      "Time from receiving a launch notification to submission result",
			Buckets:   latencyBuckets,
		}),
		TradesLogged: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "trades_logged_total",
			Help:      "Total number of trades written to the trade store",
		}, []string{"side"}),

		BlockhashRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blockhash",
			Name:      "refreshes_total",
			Help:      "Total number of blockhash refresh attempts by status",
		}, []string{"status"}),
		BlockhashAge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "blockhash",
			Name:      "age_seconds",
			Help:      "Age of the cached blockhash in seconds",
		}),

		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   latencyBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls",
		}, []string{"method"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordNotification increments the notifications received counter.
func RecordNotification() {
	DefaultMetrics.NotificationsReceived.Inc()
}

// RecordDecodeError increments the decode error counter.
func RecordDecodeError() {
	DefaultMetrics.DecodeErrors.Inc()
	DefaultMetrics.LaunchesSkipped.WithLabelValues("decode_error").Inc()
}

// UpdateHighestSlot raises the highest slot gauge.
func UpdateHighestSlot(slot uint64) {
	DefaultMetrics.HighestSlotSeen.Set(float64(slot))
}

// RecordDetection increments the launches detected counter.
func RecordDetection(kind string) {
	DefaultMetrics.LaunchesDetected.WithLabelValues(kind).Inc()
}

// RecordSkip records a skipped notification or launch.
func RecordSkip(reason string) {
	DefaultMetrics.LaunchesSkipped.WithLabelValues(reason).Inc()
}

// RecordDispatch records a dispatch attempt and its latency.
func RecordDispatch(mode, status string, seconds float64) {
	DefaultMetrics.Dispatches.WithLabelValues(mode, status).Inc()
	DefaultMetrics.DispatchLatency.WithLabelValues(mode).Observe(seconds)
}

// RecordDetectToDispatch records end-to-end latency for a launch.
func RecordDetectToDispatch(seconds float64) {
	DefaultMetrics.DetectToDispatchLatency.Observe(seconds)
}

// RecordTradeLogged increments the trades logged counter.
func RecordTradeLogged(side string) {
	DefaultMetrics.TradesLogged.WithLabelValues(side).Inc()
}

// RecordRefresh records a blockhash refresh attempt.
func RecordRefresh(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.BlockhashRefreshes.WithLabelValues(status).Inc()
}

// UpdateBlockhashAge sets the blockhash age gauge.
func UpdateBlockhashAge(seconds float64) {
	DefaultMetrics.BlockhashAge.Set(seconds)
}

// RecordRPCLatency records RPC call latency. Suitable as a solana.CallObserver.
func RecordRPCLatency(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
