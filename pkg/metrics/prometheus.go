package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide metrics container.
type Metrics struct {
	// gRPC admin surface
	GRPCRequestsTotal    *prometheus.CounterVec
	GRPCRequestDuration  *prometheus.HistogramVec
	GRPCRequestsInFlight prometheus.Gauge

	// Bridge pool
	BridgesByTier        *prometheus.GaugeVec
	BridgeStress         *prometheus.GaugeVec
	SelectionRuleFired   *prometheus.CounterVec
	SelectionOutcomes    *prometheus.CounterVec
	SelectBridgeDuration prometheus.Histogram
	HealthProbeOutcomes  *prometheus.CounterVec
	HealthProbeDuration  *prometheus.HistogramVec

	// System
	MemoryUsage *prometheus.GaugeVec
	Goroutines  prometheus.Gauge

	// Service info
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics builds and registers every bridge-pool metric under
// namespace/subsystem.
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		GRPCRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_requests_total",
				Help:      "Total number of gRPC requests",
			},
			[]string{"method", "status"},
		),

		GRPCRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_request_duration_seconds",
				Help:      "Duration of gRPC requests",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),

		GRPCRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "grpc_requests_in_flight",
				Help:      "Current number of gRPC requests being processed",
			},
		),

		BridgesByTier: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "bridges_by_tier",
				Help:      "Number of registered bridges per comparator tier (operational, shutdown, non_operational)",
			},
			[]string{"tier"},
		),

		BridgeStress: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "bridge_stress",
				Help:      "Last computed derived stress for a bridge",
			},
			[]string{"address", "region"},
		),

		SelectionRuleFired: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "selection_rule_fired_total",
				Help:      "Number of times each selection-strategy primitive fired",
			},
			[]string{"strategy", "rule"},
		),

		SelectionOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "selection_outcomes_total",
				Help:      "SelectBridge outcomes (picked vs no_bridge_available)",
			},
			[]string{"outcome"},
		),

		SelectBridgeDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "select_bridge_duration_seconds",
				Help:      "Duration of SelectBridge calls",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
		),

		HealthProbeOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "health_probe_outcomes_total",
				Help:      "Health probe outcomes (passed, failed, timed_out)",
			},
			[]string{"outcome"},
		),

		HealthProbeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "health_probe_duration_seconds",
				Help:      "Duration of a health probe attempt, including any second chance",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5, 10, 30},
			},
			[]string{"outcome"},
		),

		MemoryUsage: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "memory_usage_bytes",
				Help:      "Current memory usage",
			},
			[]string{"type"},
		),

		Goroutines: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "goroutines",
				Help:      "Current number of goroutines",
			},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	prometheus.MustRegister(NewRuntimeCollector(namespace, subsystem))

	defaultMetrics = m
	return m
}

// Get returns the process-wide metrics, initialising them with the package's
// own defaults if nothing has called InitMetrics yet.
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("bridgeselector", "")
	}
	return defaultMetrics
}

// RecordGRPCRequest increments the request counter for one admin gRPC call.
// Duration is recorded separately, via a Timer started before the handler
// runs (see pkg/interceptors), since the duration histogram's only label
// (method) is known up front while the status is not.
func (m *Metrics) RecordGRPCRequest(method string, status string) {
	m.GRPCRequestsTotal.WithLabelValues(method, status).Inc()
}

// RecordBridgeTiers sets the current bridge count for each comparator tier.
func (m *Metrics) RecordBridgeTiers(operational, shutdown, nonOperational int) {
	m.BridgesByTier.WithLabelValues("operational").Set(float64(operational))
	m.BridgesByTier.WithLabelValues("shutdown").Set(float64(shutdown))
	m.BridgesByTier.WithLabelValues("non_operational").Set(float64(nonOperational))
}

// RecordBridgeStress sets the last-observed derived stress for one bridge.
func (m *Metrics) RecordBridgeStress(address, region string, stress float64) {
	m.BridgeStress.WithLabelValues(address, region).Set(stress)
}

// RecordSelectionRule increments the fired-counter for one selection
// primitive under the given strategy name.
func (m *Metrics) RecordSelectionRule(strategy, rule string) {
	m.SelectionRuleFired.WithLabelValues(strategy, rule).Inc()
}

// RecordSelection records one SelectBridge call's outcome and duration.
func (m *Metrics) RecordSelection(outcome string, duration time.Duration) {
	m.SelectionOutcomes.WithLabelValues(outcome).Inc()
	m.SelectBridgeDuration.Observe(duration.Seconds())
}

// RecordHealthProbe records one health probe attempt's outcome and duration.
func (m *Metrics) RecordHealthProbe(outcome string, duration time.Duration) {
	m.HealthProbeOutcomes.WithLabelValues(outcome).Inc()
	m.HealthProbeDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// SetServiceInfo publishes a constant gauge describing the running version
// and environment.
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler returns the HTTP handler that serves /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer runs a standalone HTTP server exposing /metrics and a
// trivial /health liveness endpoint.
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
