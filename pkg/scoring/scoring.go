// Package scoring classifies finished calls into lead temperature and pipeline status.
//
// Every function here is pure. Rules are evaluated top to bottom and the first match wins.
package scoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
)

// ContactFields are the extracted variables that count as a way to reach the caller.
var ContactFields = []string{"caller_phone", "message_phone", "caller_email", "lead_email", "phone"}

// Score returns the lead temperature for a call:
//
//	urgency is "today" or "urgent"   -> hot
//	sentiment is "positive"          -> hot
//	any contact field is present     -> warm
//	otherwise                        -> cold
func Score(vars map[string]string, analysis domain.CallAnalysis) domain.Score {
	switch normalize(vars["urgency"]) {
	case "today", "urgent":
		return domain.ScoreHot
	}
	if normalize(analysis.UserSentiment) == domain.SentimentPositive {
		return domain.ScoreHot
	}
	for _, f := range ContactFields {
		if strings.TrimSpace(vars[f]) != "" {
			return domain.ScoreWarm
		}
	}
	return domain.ScoreCold
}

// Status returns the pipeline stage implied by the call analysis.
func Status(analysis domain.CallAnalysis) domain.LeadStatus {
	summary := strings.ToLower(analysis.CallSummary)
	if strings.Contains(summary, "scheduled") || strings.Contains(summary, "booked") {
		return domain.StatusMeetingScheduled
	}
	if normalize(analysis.UserSentiment) == domain.SentimentPositive || analysis.CallSuccessful {
		return domain.StatusInterested
	}
	return domain.StatusContacted
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// noteFields maps extracted variables to their label in lead notes, in print order.
var noteFields = []struct{ key, label string }{
	{"service_type", "Service Needed"},
	{"service_address", "Address"},
	{"urgency", "Urgency"},
	{"message_reason", "Message"},
	{"callback_time", "Best callback time"},
	{"location", "Service Area"},
	{"call_volume", "Call Volume"},
	{"current_situation", "Current Setup"},
}

// Notes summarizes a call for the lead record. at is the time printed in the header.
func Notes(ev *domain.CallEvent, at time.Time) string {
	var parts []string
	direction := "Inbound"
	if strings.EqualFold(ev.Direction, "outbound") {
		direction = "Outbound"
	}
	parts = append(parts, fmt.Sprintf("%s Call - %s", direction, at.UTC().Format(time.RFC3339)))

	from := ev.FromNumber
	if from == "" {
		from = "Unknown"
	}
	parts = append(parts, "From: "+from)

	for _, f := range noteFields {
		if v := ev.Var(f.key); v != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", f.label, v))
		}
	}

	a := ev.Analysis()
	if a.CallSummary != "" {
		parts = append(parts, "\nSummary: "+a.CallSummary)
	}
	if a.UserSentiment != "" {
		parts = append(parts, "Sentiment: "+a.UserSentiment)
	}
	if ev.RecordingURL != "" {
		parts = append(parts, "\nRecording: "+ev.RecordingURL)
	}
	return strings.Join(parts, "\n")
}

// AppendNotes adds a new call section below existing lead notes.
func AppendNotes(existing, notes string, at time.Time) string {
	section := fmt.Sprintf("---\n[%s] New call:\n%s", at.UTC().Format(time.RFC3339), notes)
	if strings.TrimSpace(existing) == "" {
		return section
	}
	return existing + "\n\n" + section
}
