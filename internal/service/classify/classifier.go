// Package classify defines the interface for external text classifiers
// (hosted language models, moderation APIs, etc.) that can stand in for the
// built-in pattern matching.
package classify

import (
	"context"

	"call-compliance-analyzer/internal/models"
)

// Task names the question a classifier is asked.
type Task string

const (
	// TaskProfanity asks whether the text contains profanity.
	TaskProfanity Task = "profanity"
	// TaskSensitiveDisclosure asks whether an agent statement discloses
	// account or financial specifics.
	TaskSensitiveDisclosure Task = "sensitive_disclosure"
)

// Context is the information passed alongside the text being classified.
type Context struct {
	Task Task
	Role models.Role
	// Verified reports whether the customer's identity had been confirmed
	// when the utterance was spoken.
	Verified bool
}

// Classifier answers a yes/no question about a piece of text.
// Implementations are supplied by the caller; their lifecycle belongs to the caller.
type Classifier interface {
	Classify(ctx context.Context, text string, c Context) (bool, error)
}

// Func adapts an ordinary function to the Classifier interface.
type Func func(ctx context.Context, text string, c Context) (bool, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, text string, c Context) (bool, error) {
	return f(ctx, text, c)
}
