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
	// Session metrics
	SessionsStarted prometheus.Counter
	SessionsActive  prometheus.Gauge
	WizardResets    prometheus.Counter

	// Step metrics
	StepTransitions *prometheus.CounterVec
	StepBlocked     *prometheus.CounterVec
	ValidationFails *prometheus.CounterVec
	MetadataSkipped prometheus.Counter

	// Deploy metrics
	DeploysTotal     *prometheus.CounterVec
	DeploysInFlight  prometheus.Gauge
	DeployDuration   *prometheus.HistogramVec
	DeployRejected   prometheus.Counter
	QuotedFeesTotal  *prometheus.CounterVec
	DeployRPCLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulDeploy prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith registers all metrics on reg. Tests pass a fresh registry.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_wizard"
	}
	f := promauto.With(reg)

	return &Metrics{
		// Session metrics
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Total number of wizard sessions started",
		}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of wizard sessions currently held by the server",
		}),
		WizardResets: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "resets_total",
			Help:      "Total number of wizard resets",
		}),

		// Step metrics
		StepTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "step",
			Name:      "transitions_total",
			Help:      "Total number of step transitions by source and target step",
		}, []string{"from", "to"}),
		StepBlocked: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "step",
			Name:      "blocked_total",
			Help:      "Total number of next() calls blocked by validation, by step",
		}, []string{"step"}),
		ValidationFails: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "field_errors_total",
			Help:      "Total number of field validation errors by field",
		}, []string{"field"}),
		MetadataSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "step",
			Name:      "metadata_skipped_total",
			Help:      "Total number of skipped metadata steps",
		}),

		// Deploy metrics
		DeploysTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "attempts_total",
			Help:      "Total number of finished deploy attempts by outcome",
		}, []string{"state"}),
		DeploysInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "in_flight",
			Help:      "Number of deploy attempts awaiting the deploy service",
		}),
		DeployDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "duration_seconds",
			Help:      "Deploy attempt duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"state"}),
		DeployRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "rejected_total",
			Help:      "Total number of deploy calls rejected while another was in flight",
		}),
		QuotedFeesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deploy",
			Name:      "quoted_fees_total",
			Help:      "Sum of total fees quoted for submitted deploys, by unit",
		}, []string{"unit"}),
		DeployRPCLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "deployservice",
			Name:      "rpc_call_latency_seconds",
			Help:      "Deploy service RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Database metrics
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

		// Health metrics
		LastSuccessfulDeploy: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_deploy_timestamp",
			Help:      "Unix timestamp of last successful deploy",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSessionStarted counts a new session.
func RecordSessionStarted() {
	DefaultMetrics.SessionsStarted.Inc()
}

// SetActiveSessions updates the active sessions gauge.
func SetActiveSessions(n int) {
	DefaultMetrics.SessionsActive.Set(float64(n))
}

// RecordReset counts a wizard reset.
func RecordReset() {
	DefaultMetrics.WizardResets.Inc()
}

// RecordStepTransition records a successful step change.
func RecordStepTransition(from, to string) {
	DefaultMetrics.StepTransitions.WithLabelValues(from, to).Inc()
}

// RecordStepBlocked records a blocked next() with the failing fields.
func RecordStepBlocked(step string, fields []string) {
	DefaultMetrics.StepBlocked.WithLabelValues(step).Inc()
	for _, f := range fields {
		DefaultMetrics.ValidationFails.WithLabelValues(f).Inc()
	}
}

// RecordMetadataSkipped counts a skipped metadata step.
func RecordMetadataSkipped() {
	DefaultMetrics.MetadataSkipped.Inc()
}

// RecordDeployStarted marks a deploy as in flight and adds its quoted fee.
func RecordDeployStarted(unit string, totalFee float64) {
	DefaultMetrics.DeploysInFlight.Inc()
	DefaultMetrics.QuotedFeesTotal.WithLabelValues(unit).Add(totalFee)
}

// RecordDeployFinished records the outcome of a deploy attempt.
func RecordDeployFinished(state string, durationSeconds float64, finishedAtUnix int64) {
	DefaultMetrics.DeploysInFlight.Dec()
	DefaultMetrics.DeploysTotal.WithLabelValues(state).Inc()
	DefaultMetrics.DeployDuration.WithLabelValues(state).Observe(durationSeconds)
	if state == "SUCCEEDED" {
		DefaultMetrics.LastSuccessfulDeploy.Set(float64(finishedAtUnix))
	}
}

// RecordDeployRejected counts a deploy call rejected as a duplicate.
func RecordDeployRejected() {
	DefaultMetrics.DeployRejected.Inc()
}

// RecordRPCLatency records deploy service call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.DeployRPCLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
