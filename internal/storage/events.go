package storage

import "time"

// EventWriter is the interface for writing decision events.
// Write() must NEVER block the caller.
type EventWriter interface {
	Write(event *DecisionEvent)
	Close()
}

// Decision event kinds.
const (
	KindTaskAssessment    = "task_assessment"
	KindTriggerEvaluation = "trigger_evaluation"
)

// DecisionEvent represents a single engine decision to be persisted. One
// row per assessment or trigger evaluation; only the field group matching
// Kind is populated, the rest stay at their zero values.
type DecisionEvent struct {
	RequestID string
	ProjectID string
	Timestamp time.Time
	Kind      string

	// task assessment
	TaskID                   string
	IntentPreview            string // first 500 chars
	IntentHash               string // SHA256 of title + prompt
	EventCount               uint32
	RiskScore                int32
	RiskLevel                string
	SignalNames              []string
	SignalTriggered          []bool
	SignalWeights            []int32
	SignalDetails            []string
	IsMutating               bool
	ReviewPolicy             string
	RunQualityPass           bool
	StrictCompletionContract bool
	RunVerificationAgent     bool
	ExplicitEvidenceRequired bool
	IsShadow                 bool

	// trigger evaluation
	RuleID         string
	EventID        string
	ConditionCount uint32
	Logic          string
	Matched        bool
	ActionPreview  string

	LatencyMs float32
	Source    string // "api" or "sdk"
}

// IntentPreviewLength is the max chars stored in intent_preview.
const IntentPreviewLength = 500

// TruncatePreview returns the first N characters (runes) of a string for
// preview storage. It never splits a multi-byte UTF-8 character.
func TruncatePreview(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
