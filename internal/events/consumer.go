package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"call-compliance-analyzer/internal/models"
	"call-compliance-analyzer/internal/observability/logging"
	"call-compliance-analyzer/internal/observability/metrics"
	"call-compliance-analyzer/internal/schema"
	"call-compliance-analyzer/internal/service/analysis"
	"call-compliance-analyzer/internal/transcript"
)

// Consume outcomes recorded per message.
const (
	OutcomeAnalyzed     = "analyzed"
	OutcomeMalformed    = "malformed"
	OutcomeRejected     = "rejected"
	OutcomePublishError = "publish_error"
	OutcomeAnalyzeError = "analyze_error"
)

// ErrMalformed is returned for messages that cannot be decoded into a transcript envelope.
var ErrMalformed = errors.New("malformed transcript message")

// ReportSink receives finished reports.
type ReportSink interface {
	PublishReport(ctx context.Context, report *models.Report) error
}

// messageReader is the subset of *kafka.Reader the consumer needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Enabled bool
}

// Consumer analyzes transcript envelopes read from Kafka and publishes the reports.
type Consumer struct {
	reader    messageReader
	analyzer  *analysis.Analyzer
	sink      ReportSink
	validator *schema.Validator
	metrics   *metrics.Metrics
	topic     string
}

// NewConsumer creates a consumer. It returns nil when the config is nil or disabled.
func NewConsumer(cfg *ConsumerConfig, analyzer *analysis.Analyzer, sink ReportSink, validator *schema.Validator) *Consumer {
	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 || cfg.Topic == "" {
		log.Info().Msg("Kafka consumer disabled")
		return nil
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0,
		Dialer: &kafka.Dialer{
			Timeout:   10 * time.Second,
			DualStack: true,
		},
	})

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Str("groupId", cfg.GroupID).
		Msg("Kafka consumer initialized")

	return newConsumer(reader, cfg.Topic, analyzer, sink, validator)
}

func newConsumer(reader messageReader, topic string, analyzer *analysis.Analyzer, sink ReportSink, validator *schema.Validator) *Consumer {
	return &Consumer{
		reader:    reader,
		analyzer:  analyzer,
		sink:      sink,
		validator: validator,
		metrics:   analyzer.Metrics(),
		topic:     topic,
	}
}

// Run fetches and handles messages until ctx is cancelled. Messages are
// committed once handled, including those skipped as malformed.
func (c *Consumer) Run(ctx context.Context) error {
	logger := logging.WithComponent("consumer")
	logger.Info().Str("topic", c.topic).Msg("Consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("Consumer stopped")
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		outcome := OutcomeAnalyzed
		if _, err := c.handle(ctx, msg); err != nil {
			outcome = outcomeFor(err)
			logger.Warn().
				Err(err).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Str("outcome", outcome).
				Msg("Skipping transcript message")
		}
		c.metrics.RecordKafkaConsume(outcome)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

type publishError struct{ err error }

func (e *publishError) Error() string { return "publish report: " + e.err.Error() }
func (e *publishError) Unwrap() error { return e.err }

type analyzeError struct{ err error }

func (e *analyzeError) Error() string { return "analyze: " + e.err.Error() }
func (e *analyzeError) Unwrap() error { return e.err }

func outcomeFor(err error) string {
	var pe *publishError
	var ae *analyzeError
	switch {
	case errors.As(err, &pe):
		return OutcomePublishError
	case errors.As(err, &ae):
		return OutcomeAnalyzeError
	case errors.Is(err, analysis.ErrUnknownKind),
		errors.Is(err, analysis.ErrUnknownApproach),
		errors.Is(err, analysis.ErrNoClassifier):
		return OutcomeRejected
	default:
		return OutcomeMalformed
	}
}

// handle decodes one message, analyzes it and publishes the report.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) (*models.Report, error) {
	if c.validator != nil {
		if err := c.validator.ValidateJSON(models.EventTypeTranscript, msg.Value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	var env models.TranscriptEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Transcript == nil {
		return nil, fmt.Errorf("%w: missing transcript", ErrMalformed)
	}

	kinds, err := analysis.ParseKinds(env.Analyses)
	if err != nil {
		return nil, err
	}
	approach, err := analysis.ParseApproach(env.Approach)
	if err != nil {
		return nil, err
	}
	if approach, err = c.analyzer.ResolveApproach(approach); err != nil {
		return nil, err
	}

	callId := env.CallID
	if callId == "" {
		callId = string(msg.Key)
	}
	if callId == "" {
		if callId, err = transcript.CallID(env.Transcript); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	report, err := c.analyzer.Analyze(ctx, callId, env.Transcript, approach, kinds...)
	if err != nil {
		return nil, &analyzeError{err: err}
	}
	if c.sink != nil {
		if err := c.sink.PublishReport(ctx, report); err != nil {
			return report, &publishError{err: err}
		}
	}
	return report, nil
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}
