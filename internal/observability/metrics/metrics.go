// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "call_compliance"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Analysis metrics
	AnalysesTotal       *prometheus.CounterVec
	AnalysisLatency     *prometheus.HistogramVec
	UtterancesProcessed prometheus.Counter
	PrivacyViolations   prometheus.Counter
	ProfanityDetected   *prometheus.CounterVec
	BatchSize           prometheus.Histogram

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsDropped *prometheus.CounterVec

	// gRPC metrics
	RPCTotal    *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec

	// Kafka metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
	KafkaConsumeTotal   *prometheus.CounterVec

	// Schema metrics
	SchemaValidationFailures *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all Prometheus metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Analysis metrics
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of transcript analyses run",
		}, []string{"kind"}),
		AnalysisLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_latency_seconds",
			Help:      "Time spent running a single analysis",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"kind"}),
		UtterancesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_processed_total",
			Help:      "Total number of utterances in analyzed transcripts",
		}),
		PrivacyViolations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "privacy_violations_total",
			Help:      "Total number of calls with a disclosure before verification",
		}),
		ProfanityDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profanity_detected_total",
			Help:      "Total number of calls with profanity, by speaker role",
		}, []string{"role"}),
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size_calls",
			Help:      "Number of calls per batch analysis",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),

		// Session metrics
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently open streaming sessions",
		}),
		SessionsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_dropped_total",
			Help:      "Total number of streaming sessions dropped",
		}, []string{"reason"}),

		// gRPC metrics
		RPCTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_calls_total",
			Help:      "Total number of gRPC calls",
		}, []string{"method", "code"}),
		RPCDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_call_duration_seconds",
			Help:      "Duration of gRPC calls in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}, []string{"method"}),

		// Kafka metrics
		KafkaPublishTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
		KafkaConsumeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_consume_total",
			Help:      "Total number of Kafka messages consumed, by outcome",
		}, []string{"outcome"}),

		// Schema metrics
		SchemaValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schema_validation_failures_total",
			Help:      "Total number of events rejected by schema validation",
		}, []string{"event_type"}),
	}
}

// RecordAnalysis records one analysis run.
func (m *Metrics) RecordAnalysis(kind string, latencySeconds float64) {
	m.AnalysesTotal.WithLabelValues(kind).Inc()
	m.AnalysisLatency.WithLabelValues(kind).Observe(latencySeconds)
}

// RecordUtterances records utterances seen by an analysis.
func (m *Metrics) RecordUtterances(n int) {
	m.UtterancesProcessed.Add(float64(n))
}

// RecordViolation records a privacy violation.
func (m *Metrics) RecordViolation() {
	m.PrivacyViolations.Inc()
}

// RecordProfanity records profanity detected for a speaker role.
func (m *Metrics) RecordProfanity(role string) {
	m.ProfanityDetected.WithLabelValues(role).Inc()
}

// RecordBatch records the size of a batch analysis.
func (m *Metrics) RecordBatch(calls int) {
	m.BatchSize.Observe(float64(calls))
}

// RecordSessionStart records a streaming session opening.
func (m *Metrics) RecordSessionStart() {
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a streaming session ending.
func (m *Metrics) RecordSessionEnd() {
	m.SessionsActive.Dec()
}

// RecordSessionDropped records a session being dropped.
func (m *Metrics) RecordSessionDropped(reason string) {
	m.SessionsDropped.WithLabelValues(reason).Inc()
}

// RecordRPC records a completed gRPC call.
func (m *Metrics) RecordRPC(method, code string, durationSeconds float64) {
	m.RPCTotal.WithLabelValues(method, code).Inc()
	m.RPCDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}

// RecordKafkaConsume records the outcome of handling a consumed message.
func (m *Metrics) RecordKafkaConsume(outcome string) {
	m.KafkaConsumeTotal.WithLabelValues(outcome).Inc()
}

// RecordSchemaFailure records an event rejected by schema validation.
func (m *Metrics) RecordSchemaFailure(eventType string) {
	m.SchemaValidationFailures.WithLabelValues(eventType).Inc()
}
