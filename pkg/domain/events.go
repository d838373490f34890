package domain

import "strings"

// EventType is the kind of call lifecycle event delivered by the platform.
type EventType string

const (
	EventCallStarted  EventType = "call_started"
	EventCallEnded    EventType = "call_ended"
	EventCallAnalyzed EventType = "call_analyzed"
	EventFunctionCall EventType = "function_call"
)

// Sentiment values reported in call analysis.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// TranscriptEntry is one utterance of the call.
type TranscriptEntry struct {
	Role      string  `json:"role"` // "agent" or "user"
	Content   string  `json:"content"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

// CallAnalysis is the platform's post-call summary.
type CallAnalysis struct {
	CallSummary    string `json:"call_summary,omitempty"`
	UserSentiment  string `json:"user_sentiment,omitempty"`
	CallSuccessful bool   `json:"call_successful,omitempty"`
}

// CallMetadata is attached by whoever created the call.
type CallMetadata struct {
	ClientUserID         string `json:"client_user_id,omitempty"`
	AgentType            string `json:"agent_type,omitempty"`
	BusinessOnboardingID string `json:"business_onboarding_id,omitempty"`
}

// CallEvent is the webhook payload sent by the platform.
// DynamicVariables is keyed by the names declared in extraction nodes.
type CallEvent struct {
	Event            EventType         `json:"event"`
	CallID           string            `json:"call_id"`
	AgentID          string            `json:"agent_id"`
	CallStatus       string            `json:"call_status,omitempty"`
	Direction        string            `json:"direction,omitempty"`
	FromNumber       string            `json:"from_number,omitempty"`
	ToNumber         string            `json:"to_number,omitempty"`
	DurationMS       int64             `json:"duration_ms,omitempty"`
	Transcript       string            `json:"transcript,omitempty"`
	TranscriptObject []TranscriptEntry `json:"transcript_object,omitempty"`
	RecordingURL     string            `json:"recording_url,omitempty"`
	CallAnalysis     *CallAnalysis     `json:"call_analysis,omitempty"`
	DynamicVariables map[string]string `json:"dynamic_variables,omitempty"`
	Metadata         *CallMetadata     `json:"metadata,omitempty"`
	// Function call events only.
	ToolCall *ToolCall `json:"function_call,omitempty"`
}

// Analysis returns the call analysis, or an empty one.
func (e *CallEvent) Analysis() CallAnalysis {
	if e.CallAnalysis == nil {
		return CallAnalysis{}
	}
	return *e.CallAnalysis
}

// Var returns a trimmed dynamic variable value.
func (e *CallEvent) Var(name string) string {
	return strings.TrimSpace(e.DynamicVariables[name])
}
