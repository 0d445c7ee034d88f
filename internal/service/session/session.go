// Package session analyzes a transcript that arrives one utterance at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"call-compliance-analyzer/internal/models"
	"call-compliance-analyzer/internal/observability/logging"
	"call-compliance-analyzer/internal/service/analysis"
	"call-compliance-analyzer/internal/service/classify"
	"call-compliance-analyzer/internal/service/compliance"
)

// Drop reasons recorded in metrics.
const (
	ReasonMaxUtterances = "max_utterances"
	ReasonMaxDuration   = "max_duration"
	ReasonClientError   = "client_error"
	ReasonClassifier    = "classifier_error"
)

var (
	ErrSessionClosed = errors.New("session is closed")
	ErrLimitExceeded = errors.New("session limit exceeded")
)

// Limits bounds the resources one session may use. Zero disables a limit.
type Limits struct {
	MaxUtterances int
	MaxDuration   time.Duration
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxUtterances: 10000,
		MaxDuration:   2 * time.Hour,
	}
}

// Alerter receives privacy violations as soon as they are detected.
type Alerter interface {
	PublishViolation(ctx context.Context, callId string, res models.DetectionResult) error
}

// Session accumulates utterances for one call. The privacy check runs
// incrementally so a violation is alerted on before the call ends; the
// remaining analyses run once on Close.
type Session struct {
	callId   string
	analyzer *analysis.Analyzer
	alerter  Alerter
	kinds    []analysis.Kind
	approach analysis.Approach
	// classifier is set only under the classifier approach.
	classifier classify.Classifier
	limits     Limits
	lifecycle  *Lifecycle
	logger     zerolog.Logger

	mu         sync.Mutex
	pass       *compliance.Pass
	transcript models.Transcript
	startTime  time.Time
	violation  *models.DetectionResult
}

// New opens a session. A nil alerter disables immediate alerts. An empty
// approach uses the analyzer's default. No kinds means all of them.
func New(callId string, analyzer *analysis.Analyzer, alerter Alerter, limits Limits, approach analysis.Approach, kinds ...analysis.Kind) (*Session, error) {
	approach, err := analyzer.ResolveApproach(approach)
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		kinds = analysis.AllKinds()
	}
	s := &Session{
		callId:    callId,
		analyzer:  analyzer,
		alerter:   alerter,
		kinds:     kinds,
		approach:  approach,
		limits:    limits,
		lifecycle: NewLifecycle(),
		logger:    logging.WithCall(callId),
		startTime: time.Now(),
	}
	if slices.Contains(kinds, analysis.KindPrivacy) {
		s.pass = analyzer.Detector().NewPass()
	}
	if approach == analysis.ApproachClassifier {
		s.classifier = analyzer.Classifier()
	}
	analyzer.Metrics().RecordSessionStart()
	s.logger.Info().
		Str("approach", string(approach)).
		Int("maxUtterances", limits.MaxUtterances).
		Dur("maxDuration", limits.MaxDuration).
		Msg("Session opened")
	return s, nil
}

// CallID returns the call being analyzed.
func (s *Session) CallID() string {
	return s.callId
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.lifecycle.State()
}

// UtteranceCount returns the number of utterances accepted so far.
func (s *Session) UtteranceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transcript)
}

// Violation returns the privacy violation found so far, or nil.
func (s *Session) Violation() *models.DetectionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.violation
}

// Add appends an utterance. Exceeding a limit drops the session and returns
// ErrLimitExceeded. A classifier failure also drops the session.
func (s *Session) Add(ctx context.Context, u models.Utterance) error {
	if !s.lifecycle.IsOpen() {
		return ErrSessionClosed
	}

	s.mu.Lock()
	if s.limits.MaxUtterances > 0 && len(s.transcript) >= s.limits.MaxUtterances {
		s.mu.Unlock()
		s.Drop(ReasonMaxUtterances)
		return fmt.Errorf("%w: more than %d utterances", ErrLimitExceeded, s.limits.MaxUtterances)
	}
	if elapsed := time.Since(s.startTime); s.limits.MaxDuration > 0 && elapsed > s.limits.MaxDuration {
		s.mu.Unlock()
		s.Drop(ReasonMaxDuration)
		return fmt.Errorf("%w: open for %v > %v", ErrLimitExceeded, elapsed.Round(time.Millisecond), s.limits.MaxDuration)
	}

	index := len(s.transcript)
	s.transcript = append(s.transcript, u)

	var found *models.DetectionResult
	if s.pass != nil && !s.pass.Violated() {
		done, err := s.observe(ctx, index, u)
		if err != nil {
			s.mu.Unlock()
			s.Drop(ReasonClassifier)
			return err
		}
		if done {
			res := s.pass.Result()
			s.violation = &res
			found = &res
		}
	}
	s.mu.Unlock()

	if found != nil {
		s.alert(ctx, *found)
	}
	return nil
}

func (s *Session) observe(ctx context.Context, index int, u models.Utterance) (bool, error) {
	if s.classifier != nil {
		return s.pass.ObserveWithClassifier(ctx, index, u, s.classifier)
	}
	return s.pass.Observe(index, u), nil
}

func (s *Session) alert(ctx context.Context, res models.DetectionResult) {
	s.logger.Warn().
		Int("utteranceIndex", *res.FirstSensitiveIndex).
		Str("pattern", res.MatchedPattern).
		Msg("Disclosure before verification in live call")

	if s.alerter == nil {
		return
	}
	if err := s.alerter.PublishViolation(ctx, s.callId, res); err != nil {
		s.logger.Error().Err(err).Msg("Failed to publish violation alert")
	}
}

// Close ends the session and returns the full report.
func (s *Session) Close(ctx context.Context) (*models.Report, error) {
	if !s.lifecycle.Close() {
		return nil, ErrSessionClosed
	}
	s.analyzer.Metrics().RecordSessionEnd()

	s.mu.Lock()
	t := slices.Clone(s.transcript)
	duration := time.Since(s.startTime)
	s.mu.Unlock()

	report, err := s.analyzer.Analyze(ctx, s.callId, t, s.approach, s.kinds...)
	if err != nil {
		s.logger.Error().Err(err).Int("utterances", len(t)).Msg("Session analysis failed")
		return nil, fmt.Errorf("analyze session: %w", err)
	}
	s.logger.Info().
		Int("utterances", len(t)).
		Dur("duration", duration.Round(time.Millisecond)).
		Str("analysisId", report.AnalysisID).
		Msg("Session closed")
	return report, nil
}

// Drop abandons the session without producing a report.
// Returns true if the session was dropped, false if already in a terminal state.
func (s *Session) Drop(reason string) bool {
	if !s.lifecycle.Drop() {
		return false
	}
	m := s.analyzer.Metrics()
	m.RecordSessionEnd()
	m.RecordSessionDropped(reason)
	s.logger.Warn().Str("reason", reason).Int("utterances", s.UtteranceCount()).Msg("Session DROPPED")
	return true
}
