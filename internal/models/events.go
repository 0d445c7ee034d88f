package models

const (
	EventTypeReport    = "call.analysis.report"
	EventTypeViolation = "call.compliance.violation"

	// EventTypeTranscript identifies inbound transcript envelopes.
	EventTypeTranscript = "call.transcript"
)

// ReportEvent is published once an analysis of a call has completed.
type ReportEvent struct {
	EventType  string  `json:"eventType"`
	EventID    string  `json:"eventId"`
	CallID     string  `json:"callId"`
	AnalysisID string  `json:"analysisId"`
	Timestamp  int64   `json:"timestamp"`
	Report     *Report `json:"report"`
}

// ViolationEvent is published as soon as a privacy violation is detected.
type ViolationEvent struct {
	EventType      string `json:"eventType"`
	EventID        string `json:"eventId"`
	CallID         string `json:"callId"`
	UtteranceIndex int    `json:"utteranceIndex"`
	Evidence       string `json:"evidence"`
	MatchedPattern string `json:"matchedPattern,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

// TranscriptEnvelope is the inbound message carrying a transcript to analyze.
type TranscriptEnvelope struct {
	CallID     string     `json:"call_id"`
	Analyses   []string   `json:"analyses,omitempty"`
	Approach   string     `json:"approach,omitempty"`
	Transcript Transcript `json:"transcript"`
}
