// Package analysis runs the selected detectors over transcripts and groups
// the outcomes, one call or a whole batch at a time.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"call-compliance-analyzer/internal/models"
	"call-compliance-analyzer/internal/observability/logging"
	"call-compliance-analyzer/internal/observability/metrics"
	"call-compliance-analyzer/internal/patterns"
	"call-compliance-analyzer/internal/service/callmetrics"
	"call-compliance-analyzer/internal/service/classify"
	"call-compliance-analyzer/internal/service/compliance"
	"call-compliance-analyzer/internal/service/profanity"
)

// Kind names one of the independent analyses.
type Kind string

const (
	KindProfanity Kind = "profanity"
	KindPrivacy   Kind = "privacy"
	KindMetrics   Kind = "metrics"
)

// AllKinds returns every analysis kind in canonical order.
func AllKinds() []Kind {
	return []Kind{KindProfanity, KindPrivacy, KindMetrics}
}

// ErrUnknownKind is returned for analysis names that are not recognized.
var ErrUnknownKind = errors.New("unknown analysis kind")

// ParseKinds validates analysis names. Names are case-insensitive and may be
// comma separated. An empty list selects every kind. The result is
// deduplicated and in canonical order.
func ParseKinds(names []string) ([]Kind, error) {
	selected := make(map[Kind]bool)
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			k := Kind(part)
			switch k {
			case KindProfanity, KindPrivacy, KindMetrics:
				selected[k] = true
			default:
				return nil, fmt.Errorf("%w: %q", ErrUnknownKind, part)
			}
		}
	}
	if len(selected) == 0 {
		return AllKinds(), nil
	}

	kinds := make([]Kind, 0, len(selected))
	for _, k := range AllKinds() {
		if selected[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// Approach selects how profanity and privacy judgments are made. Metrics
// are computed the same way under every approach.
type Approach string

const (
	// ApproachPattern matches the pattern taxonomy.
	ApproachPattern Approach = "pattern"
	// ApproachClassifier asks the configured classifier.
	ApproachClassifier Approach = "classifier"
)

var (
	// ErrUnknownApproach is returned for approach names that are not recognized.
	ErrUnknownApproach = errors.New("unknown analysis approach")
	// ErrNoClassifier is returned when the classifier approach is requested
	// from an analyzer built without one.
	ErrNoClassifier = errors.New("no classifier configured")
)

// ParseApproach validates an approach name, case-insensitively. An empty name
// returns the empty Approach, which the analyzer resolves to its default.
func ParseApproach(name string) (Approach, error) {
	switch a := Approach(strings.ToLower(strings.TrimSpace(name))); a {
	case "", ApproachPattern, ApproachClassifier:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownApproach, name)
	}
}

const defaultWorkers = 4

// Analyzer runs analyses and records metrics. It is safe for concurrent use.
type Analyzer struct {
	scanner    *profanity.Scanner
	detector   *compliance.Detector
	classifier classify.Classifier
	approach   Approach
	metrics    *metrics.Metrics
	ids        *IDGenerator
	workers    int
	now        func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMetrics sets the metrics sink. Defaults to metrics.DefaultMetrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithWorkers bounds the number of transcripts analyzed concurrently in a batch.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithClassifier enables the classifier approach. The analyzer does not own c.
func WithClassifier(c classify.Classifier) Option {
	return func(a *Analyzer) {
		a.classifier = c
	}
}

// WithDefaultApproach sets the approach used when a request names none.
// Defaults to ApproachPattern.
func WithDefaultApproach(approach Approach) Option {
	return func(a *Analyzer) {
		if approach != "" {
			a.approach = approach
		}
	}
}

// WithClock overrides the time source used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an Analyzer over the taxonomy. A nil set uses the defaults.
func New(set *patterns.Set, opts ...Option) *Analyzer {
	if set == nil {
		set = patterns.Default()
	}
	a := &Analyzer{
		scanner:  profanity.NewScanner(set),
		detector: compliance.NewDetector(set),
		metrics:  metrics.DefaultMetrics,
		approach: ApproachPattern,
		ids:      NewIDGenerator(),
		workers:  defaultWorkers,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Detector returns the privacy detector, for callers that feed utterances incrementally.
func (a *Analyzer) Detector() *compliance.Detector {
	return a.detector
}

// Classifier returns the configured classifier, or nil.
func (a *Analyzer) Classifier() classify.Classifier {
	return a.classifier
}

// ResolveApproach maps the empty approach to the analyzer's default and
// checks that the result can be served.
func (a *Analyzer) ResolveApproach(approach Approach) (Approach, error) {
	if approach == "" {
		approach = a.approach
	}
	switch approach {
	case ApproachPattern:
		return approach, nil
	case ApproachClassifier:
		if a.classifier == nil {
			return "", ErrNoClassifier
		}
		return approach, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownApproach, approach)
	}
}

// Metrics returns the metrics sink.
func (a *Analyzer) Metrics() *metrics.Metrics {
	return a.metrics
}

// Analyze runs the given kinds over one transcript. No kinds means all of
// them. Under the classifier approach a classifier error fails the analysis.
func (a *Analyzer) Analyze(ctx context.Context, callId string, t models.Transcript, approach Approach, kinds ...Kind) (*models.Report, error) {
	approach, err := a.ResolveApproach(approach)
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		kinds = AllKinds()
	}

	report := &models.Report{
		CallID:         callId,
		AnalysisID:     a.ids.Next(callId),
		Approach:       string(approach),
		Analyses:       make([]string, 0, len(kinds)),
		UtteranceCount: len(t),
		AnalyzedAt:     a.now().UTC(),
	}
	logger := logging.WithAnalysis(callId, report.AnalysisID)

	for _, k := range kinds {
		start := time.Now()
		switch k {
		case KindProfanity:
			res, err := a.scanProfanity(ctx, t, approach)
			if err != nil {
				return nil, fmt.Errorf("profanity: %w", err)
			}
			report.Profanity = &res
			if res.AgentProfanity {
				a.metrics.RecordProfanity(string(models.RoleAgent))
			}
			if res.CustomerProfanity {
				a.metrics.RecordProfanity(string(models.RoleCustomer))
			}
		case KindPrivacy:
			res, err := a.detectPrivacy(ctx, t, approach)
			if err != nil {
				return nil, fmt.Errorf("privacy: %w", err)
			}
			report.Privacy = &res
			if res.Violation {
				a.metrics.RecordViolation()
				logger.Warn().
					Int("utteranceIndex", *res.FirstSensitiveIndex).
					Str("pattern", res.MatchedPattern).
					Msg("Disclosure before verification")
			}
		case KindMetrics:
			res := callmetrics.Compute(t)
			report.Metrics = &res
		default:
			continue
		}
		report.Analyses = append(report.Analyses, string(k))
		a.metrics.RecordAnalysis(string(k), time.Since(start).Seconds())
	}
	a.metrics.RecordUtterances(len(t))

	logger.Debug().
		Str("approach", report.Approach).
		Strs("analyses", report.Analyses).
		Int("utterances", len(t)).
		Msg("Analysis completed")

	return report, nil
}

func (a *Analyzer) scanProfanity(ctx context.Context, t models.Transcript, approach Approach) (models.ProfanityResult, error) {
	if approach == ApproachClassifier {
		return a.scanner.ScanWithClassifier(ctx, t, a.classifier)
	}
	return a.scanner.Scan(t), nil
}

func (a *Analyzer) detectPrivacy(ctx context.Context, t models.Transcript, approach Approach) (models.DetectionResult, error) {
	if approach == ApproachClassifier {
		return a.detector.DetectWithClassifier(ctx, t, a.classifier)
	}
	return a.detector.Detect(t), nil
}

// AnalyzeBatch analyzes every call concurrently, one task per transcript,
// and groups call IDs by outcome. Call ID lists are sorted.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, calls map[string]models.Transcript, approach Approach, kinds ...Kind) (*models.BatchSummary, error) {
	approach, err := a.ResolveApproach(approach)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(calls))
	for id := range calls {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	reports := make([]*models.Report, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := a.Analyze(gctx, id, calls[id], approach, kinds...)
			if err != nil {
				return fmt.Errorf("call %s: %w", id, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze batch: %w", err)
	}
	a.metrics.RecordBatch(len(ids))

	summary := models.NewBatchSummary()
	for i, id := range ids {
		r := reports[i]
		summary.Reports[id] = r
		if r.Profanity != nil {
			if r.Profanity.AgentProfanity {
				summary.AgentProfanityCalls = append(summary.AgentProfanityCalls, id)
			}
			if r.Profanity.CustomerProfanity {
				summary.CustomerProfanityCalls = append(summary.CustomerProfanityCalls, id)
			}
		}
		if r.Privacy != nil {
			if r.Privacy.Violation {
				summary.ViolatingCalls = append(summary.ViolatingCalls, id)
			} else {
				summary.NonViolatingCalls = append(summary.NonViolatingCalls, id)
			}
		}
	}
	return summary, nil
}
