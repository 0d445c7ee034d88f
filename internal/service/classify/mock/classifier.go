// Package mock provides a pattern-backed classifier for testing and offline runs
// without a hosted model.
package mock

import (
	"context"
	"sync"

	"call-compliance-analyzer/internal/patterns"
	"call-compliance-analyzer/internal/service/classify"
)

// Classifier answers classification tasks with the pattern taxonomy and
// records the calls it receives unless created with NewOffline.
type Classifier struct {
	set    *patterns.Set
	err    error
	record bool

	mu    sync.Mutex
	calls []Call
}

// Call is one recorded Classify invocation.
type Call struct {
	Text    string
	Context classify.Context
}

var _ classify.Classifier = (*Classifier)(nil)

// New creates a mock classifier backed by set that records its calls.
// A nil set uses the defaults.
func New(set *patterns.Set) *Classifier {
	if set == nil {
		set = patterns.Default()
	}
	return &Classifier{set: set, record: true}
}

// NewOffline creates a classifier backed by set that keeps no call history,
// for long-running use without a hosted model.
func NewOffline(set *patterns.Set) *Classifier {
	c := New(set)
	c.record = false
	return c
}

// FailWith makes every subsequent call return err.
func (c *Classifier) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Classify implements classify.Classifier.
func (c *Classifier) Classify(ctx context.Context, text string, cc classify.Context) (bool, error) {
	c.mu.Lock()
	if c.record {
		c.calls = append(c.calls, Call{Text: text, Context: cc})
	}
	err := c.err
	c.mu.Unlock()

	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	switch cc.Task {
	case classify.TaskProfanity:
		return c.set.Matches(patterns.CategoryProfanity, text), nil
	case classify.TaskSensitiveDisclosure:
		return c.set.Matches(patterns.CategorySensitiveDisclosure, text), nil
	default:
		return false, nil
	}
}

// Calls returns a copy of the recorded calls.
func (c *Classifier) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}
