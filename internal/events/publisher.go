// Package events publishes analysis results to Kafka and consumes transcripts from it.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"call-compliance-analyzer/internal/models"
	"call-compliance-analyzer/internal/observability/metrics"
	"call-compliance-analyzer/internal/schema"
)

// ErrNoViolation is returned when asked to alert on a result that is not a violation.
var ErrNoViolation = errors.New("result is not a violation")

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes analysis reports and violation alerts to separate Kafka topics.
type Publisher struct {
	writerReports    messageWriter
	writerViolations messageWriter
	principal        string
	topicReports     string
	topicViolations  string
	enabled          bool
	metrics          *metrics.Metrics
	validator        *schema.Validator
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers         []string
	TopicReports    string
	TopicViolations string
	Principal       string
	Enabled         bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithMetrics sets the metrics sink. Defaults to metrics.DefaultMetrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithValidator checks every outbound event against its schema before it is written.
func WithValidator(v *schema.Validator) Option {
	return func(p *Publisher) {
		p.validator = v
	}
}

// New creates a Kafka event publisher. With a nil or disabled config, events are only logged.
func New(cfg *Config, opts ...Option) *Publisher {
	p := &Publisher{metrics: metrics.DefaultMetrics}
	for _, opt := range opts {
		opt(p)
	}

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return p
	}

	p.principal = cfg.Principal
	p.topicReports = cfg.TopicReports
	p.topicViolations = cfg.TopicViolations

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return p
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	p.writerReports = newWriter(cfg.Brokers, cfg.TopicReports, transport)
	p.writerViolations = newWriter(cfg.Brokers, cfg.TopicViolations, transport)
	p.enabled = true

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicReports", cfg.TopicReports).
		Str("topicViolations", cfg.TopicViolations).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return p
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// Enabled reports whether events are written to Kafka.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// PublishReport publishes a completed analysis keyed by call ID.
func (p *Publisher) PublishReport(ctx context.Context, report *models.Report) error {
	if report == nil {
		return errors.New("nil report")
	}
	event := &models.ReportEvent{
		EventType:  models.EventTypeReport,
		EventID:    uuid.NewString(),
		CallID:     report.CallID,
		AnalysisID: report.AnalysisID,
		Timestamp:  time.Now().UnixMilli(),
		Report:     report,
	}
	return p.publish(ctx, p.writerReports, p.topicReports, models.EventTypeReport, report.CallID, event)
}

// PublishViolation publishes an alert for a privacy violation keyed by call ID.
func (p *Publisher) PublishViolation(ctx context.Context, callId string, res models.DetectionResult) error {
	if !res.Violation || res.FirstSensitiveIndex == nil {
		return ErrNoViolation
	}
	event := &models.ViolationEvent{
		EventType:      models.EventTypeViolation,
		EventID:        uuid.NewString(),
		CallID:         callId,
		UtteranceIndex: *res.FirstSensitiveIndex,
		MatchedPattern: res.MatchedPattern,
		Timestamp:      time.Now().UnixMilli(),
	}
	if res.Evidence != nil {
		event.Evidence = *res.Evidence
	}
	return p.publish(ctx, p.writerViolations, p.topicViolations, models.EventTypeViolation, callId, event)
}

func (p *Publisher) publish(ctx context.Context, writer messageWriter, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}

	if p.validator != nil {
		if err := p.validator.ValidateJSON(eventType, payload); err != nil {
			log.Error().Err(err).Str("topic", topic).Str("key", key).Msg("Event failed schema validation")
			return err
		}
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return fmt.Errorf("write %s: %w", topic, err)
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerReports != nil {
		if e := p.writerReports.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing reports writer")
			err = e
		}
	}
	if p.writerViolations != nil {
		if e := p.writerViolations.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing violations writer")
			err = e
		}
	}
	return err
}
