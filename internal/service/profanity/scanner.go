// Package profanity flags profanity per speaker role.
package profanity

import (
	"context"
	"fmt"

	"call-compliance-analyzer/internal/models"
	"call-compliance-analyzer/internal/patterns"
	"call-compliance-analyzer/internal/service/classify"
)

// Scanner matches utterances against the profanity category of a taxonomy.
type Scanner struct {
	set *patterns.Set
}

// NewScanner creates a scanner. A nil set uses the defaults.
func NewScanner(set *patterns.Set) *Scanner {
	if set == nil {
		set = patterns.Default()
	}
	return &Scanner{set: set}
}

// Scan checks every utterance. Agent and customer flags accumulate
// independently; other speakers contribute to neither.
func (s *Scanner) Scan(t models.Transcript) models.ProfanityResult {
	var res models.ProfanityResult
	for i, u := range t {
		role := u.Role()
		if role == models.RoleOther {
			continue
		}
		m, ok := s.set.Match(patterns.CategoryProfanity, u.Text)
		if !ok {
			continue
		}
		record(&res, i, role, m.Pattern)
	}
	return res
}

// ScanWithClassifier asks c about each agent and customer utterance instead
// of matching the word list.
func (s *Scanner) ScanWithClassifier(ctx context.Context, t models.Transcript, c classify.Classifier) (models.ProfanityResult, error) {
	var res models.ProfanityResult
	for i, u := range t {
		role := u.Role()
		if role == models.RoleOther {
			continue
		}
		ok, err := c.Classify(ctx, u.Text, classify.Context{Task: classify.TaskProfanity, Role: role})
		if err != nil {
			return models.ProfanityResult{}, fmt.Errorf("classify utterance %d: %w", i, err)
		}
		if ok {
			record(&res, i, role, "")
		}
	}
	return res, nil
}

func record(res *models.ProfanityResult, index int, role models.Role, word string) {
	switch role {
	case models.RoleAgent:
		res.AgentProfanity = true
	case models.RoleCustomer:
		res.CustomerProfanity = true
	}
	res.Hits = append(res.Hits, models.ProfanityHit{Index: index, Role: role, Word: word})
}
