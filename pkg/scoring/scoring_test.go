package scoring

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/switchboard/pkg/domain"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		vars      map[string]string
		sentiment string
		want      domain.Score
	}{
		{"urgency today", map[string]string{"urgency": "today"}, "", domain.ScoreHot},
		{"urgency urgent, mixed case", map[string]string{"urgency": " Urgent "}, domain.SentimentNegative, domain.ScoreHot},
		{"positive sentiment, no urgency", nil, domain.SentimentPositive, domain.ScoreHot},
		{"name and phone, neutral", map[string]string{"caller_name": "Ann", "caller_phone": "+14085551234"}, domain.SentimentNeutral, domain.ScoreWarm},
		{"email only", map[string]string{"lead_email": "a@b.co"}, "", domain.ScoreWarm},
		{"urgency this week with phone", map[string]string{"urgency": "this week", "message_phone": "555"}, "", domain.ScoreWarm},
		{"blank contact field", map[string]string{"caller_phone": "  "}, "", domain.ScoreCold},
		{"empty, negative", nil, domain.SentimentNegative, domain.ScoreCold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.vars, domain.CallAnalysis{UserSentiment: tt.sentiment})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name     string
		analysis domain.CallAnalysis
		want     domain.LeadStatus
	}{
		{"booked", domain.CallAnalysis{CallSummary: "Caller Booked a visit"}, domain.StatusMeetingScheduled},
		{"scheduled wins over sentiment", domain.CallAnalysis{CallSummary: "Meeting scheduled", UserSentiment: "negative"}, domain.StatusMeetingScheduled},
		{"positive", domain.CallAnalysis{UserSentiment: "positive"}, domain.StatusInterested},
		{"successful", domain.CallAnalysis{CallSuccessful: true}, domain.StatusInterested},
		{"nothing", domain.CallAnalysis{}, domain.StatusContacted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.analysis))
		})
	}
}

func TestNotes(t *testing.T) {
	at := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)
	ev := &domain.CallEvent{
		FromNumber: "+14085551234",
		DynamicVariables: map[string]string{
			"service_type":    "lawn care",
			"service_address": "12 Elm St, San Jose, CA",
			"urgency":         "this week",
		},
		CallAnalysis: &domain.CallAnalysis{CallSummary: "Wants weekly mowing.", UserSentiment: "positive"},
		RecordingURL: "https://rec.example/1.wav",
	}

	want := strings.Join([]string{
		"Inbound Call - 2026-03-04T15:30:00Z",
		"From: +14085551234",
		"Service Needed: lawn care",
		"Address: 12 Elm St, San Jose, CA",
		"Urgency: this week",
		"\nSummary: Wants weekly mowing.",
		"Sentiment: positive",
		"\nRecording: https://rec.example/1.wav",
	}, "\n")
	assert.Equal(t, want, Notes(ev, at))
}

func TestNotes_Minimal(t *testing.T) {
	at := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	got := Notes(&domain.CallEvent{Direction: "outbound"}, at)
	assert.Equal(t, "Outbound Call - 2026-03-04T00:00:00Z\nFrom: Unknown", got)
}

func TestAppendNotes(t *testing.T) {
	at := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "---\n[2026-03-04T00:00:00Z] New call:\nhello", AppendNotes("", "hello", at))
	assert.Equal(t, "old\n\n---\n[2026-03-04T00:00:00Z] New call:\nhello", AppendNotes("old", "hello", at))
}
