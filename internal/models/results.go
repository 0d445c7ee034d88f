package models

import "time"

// DetectionResult is the outcome of a privacy compliance pass.
type DetectionResult struct {
	Violation               bool    `json:"violation"`
	FirstSensitiveIndex     *int    `json:"first_sensitive_index"`
	Evidence                *string `json:"evidence"`
	VerifiedBeforeSensitive bool    `json:"verified_before_sensitive"`
	MatchedPattern          string  `json:"matched_pattern,omitempty"`
}

// ProfanityHit records one utterance that matched the profanity list.
type ProfanityHit struct {
	Index int    `json:"index"`
	Role  Role   `json:"role"`
	Word  string `json:"word"`
}

// ProfanityResult holds independent per-role profanity flags.
type ProfanityResult struct {
	AgentProfanity    bool           `json:"agent_profanity"`
	CustomerProfanity bool           `json:"customer_profanity"`
	Hits              []ProfanityHit `json:"hits,omitempty"`
}

// MetricsResult holds timing-derived call quality metrics in seconds and percent.
type MetricsResult struct {
	TotalDuration    float64 `json:"total_duration"`
	SilenceDuration  float64 `json:"silence_duration"`
	OvertalkDuration float64 `json:"overtalk_duration"`
	SilencePct       float64 `json:"silence_pct"`
	OvertalkPct      float64 `json:"overtalk_pct"`
	UtteranceCount   int     `json:"utterance_count"`
}

// Report bundles the results of the analyses run for one call.
type Report struct {
	CallID         string           `json:"call_id"`
	AnalysisID     string           `json:"analysis_id"`
	Approach       string           `json:"approach,omitempty"`
	Analyses       []string         `json:"analyses"`
	UtteranceCount int              `json:"utterance_count"`
	Profanity      *ProfanityResult `json:"profanity,omitempty"`
	Privacy        *DetectionResult `json:"privacy,omitempty"`
	Metrics        *MetricsResult   `json:"metrics,omitempty"`
	AnalyzedAt     time.Time        `json:"analyzed_at"`
}

// BatchSummary groups call IDs by outcome across many transcripts.
type BatchSummary struct {
	AgentProfanityCalls    []string           `json:"agent_profanity_calls"`
	CustomerProfanityCalls []string           `json:"customer_profanity_calls"`
	ViolatingCalls         []string           `json:"violating_calls"`
	NonViolatingCalls      []string           `json:"non_violating_calls"`
	Reports                map[string]*Report `json:"reports"`
}

// NewBatchSummary returns a summary with empty, non-nil collections.
func NewBatchSummary() *BatchSummary {
	return &BatchSummary{
		AgentProfanityCalls:    []string{},
		CustomerProfanityCalls: []string{},
		ViolatingCalls:         []string{},
		NonViolatingCalls:      []string{},
		Reports:                map[string]*Report{},
	}
}
