package compliance

import (
	"context"
	"fmt"

	"call-compliance-analyzer/internal/models"
	"call-compliance-analyzer/internal/patterns"
	"call-compliance-analyzer/internal/service/classify"
)

// ClassifierPattern is reported as the matched pattern when a classifier,
// not the taxonomy, judged the disclosure.
const ClassifierPattern = "classifier"

// Detector flags the first agent disclosure of account specifics that happens
// before the customer's identity is verified. It holds no per-call state and
// is safe for concurrent use.
type Detector struct {
	set *patterns.Set
}

// NewDetector creates a detector using the given taxonomy. A nil set uses the defaults.
func NewDetector(set *patterns.Set) *Detector {
	if set == nil {
		set = patterns.Default()
	}
	return &Detector{set: set}
}

// Detect runs one pass over the transcript in speaking order.
func (d *Detector) Detect(t models.Transcript) models.DetectionResult {
	p := d.NewPass()
	for i, u := range t {
		if p.Observe(i, u) {
			break
		}
	}
	return p.Result()
}

// DetectWithClassifier runs the same pass but delegates the sensitive
// disclosure judgment to c. Verification requests and responses are still
// recognized by the taxonomy. A classifier error aborts the pass.
func (d *Detector) DetectWithClassifier(ctx context.Context, t models.Transcript, c classify.Classifier) (models.DetectionResult, error) {
	p := d.NewPass()
	for i, u := range t {
		done, err := p.ObserveWithClassifier(ctx, i, u, c)
		if err != nil {
			return models.DetectionResult{}, err
		}
		if done {
			break
		}
	}
	return p.Result(), nil
}

// NewPass starts an incremental detection pass.
func (d *Detector) NewPass() *Pass {
	return &Pass{
		set:          d.set,
		verification: NewVerification(),
	}
}

type disclosureFunc func(text string, role models.Role, verified bool) (pattern string, ok bool, err error)

// Pass is one detection run fed an utterance at a time. After a violation
// is found, further observations are ignored. Not safe for concurrent use.
type Pass struct {
	set          *patterns.Set
	verification *Verification

	violated bool
	index    int
	evidence string
	pattern  string
}

// Observe processes the utterance at index and returns true once a violation has been found.
func (p *Pass) Observe(index int, u models.Utterance) bool {
	done, _ := p.observe(index, u, p.matchDisclosure)
	return done
}

// ObserveWithClassifier is Observe with the disclosure judgment delegated to c.
func (p *Pass) ObserveWithClassifier(ctx context.Context, index int, u models.Utterance, c classify.Classifier) (bool, error) {
	disclosed := func(text string, role models.Role, verified bool) (string, bool, error) {
		ok, err := c.Classify(ctx, text, classify.Context{
			Task:     classify.TaskSensitiveDisclosure,
			Role:     role,
			Verified: verified,
		})
		if err != nil {
			return "", false, err
		}
		return ClassifierPattern, ok, nil
	}
	done, err := p.observe(index, u, disclosed)
	if err != nil {
		return false, fmt.Errorf("classify utterance %d: %w", index, err)
	}
	return done, nil
}

func (p *Pass) matchDisclosure(text string, _ models.Role, _ bool) (string, bool, error) {
	m, ok := p.set.Match(patterns.CategorySensitiveDisclosure, text)
	return m.Pattern, ok, nil
}

func (p *Pass) observe(index int, u models.Utterance, disclosed disclosureFunc) (bool, error) {
	if p.violated {
		return true, nil
	}

	switch u.Role() {
	case models.RoleAgent:
		if !p.verification.Verified() {
			pattern, ok, err := disclosed(u.Text, models.RoleAgent, false)
			if err != nil {
				return false, err
			}
			if ok {
				p.violated = true
				p.index = index
				p.evidence = u.Text
				p.pattern = pattern
				return true, nil
			}
		}
		if p.set.Matches(patterns.CategoryVerificationRequest, u.Text) {
			p.verification.Request()
		}
	case models.RoleCustomer:
		if p.verification.Requested() && p.set.Matches(patterns.CategoryVerificationResponse, u.Text) {
			_ = p.verification.Confirm()
		}
	}
	return false, nil
}

// Violated reports whether a violation has been found.
func (p *Pass) Violated() bool {
	return p.violated
}

// State returns the current verification state.
func (p *Pass) State() State {
	return p.verification.State()
}

// Result returns the outcome so far. Without a violation it reports whether
// the customer ended up verified.
func (p *Pass) Result() models.DetectionResult {
	if p.violated {
		index := p.index
		evidence := p.evidence
		return models.DetectionResult{
			Violation:               true,
			FirstSensitiveIndex:     &index,
			Evidence:                &evidence,
			VerifiedBeforeSensitive: false,
			MatchedPattern:          p.pattern,
		}
	}
	return models.DetectionResult{
		Violation:               false,
		VerifiedBeforeSensitive: p.verification.Verified(),
	}
}
