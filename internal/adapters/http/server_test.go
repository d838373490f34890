package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchboard/internal/adapters/memory"
	webhook "github.com/aretw0/switchboard/internal/adapters/http"
	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/pkg/domain"
)

// Tuesday morning, so tomorrow's slots are all open.
var now = time.Date(2026, time.March, 3, 10, 30, 0, 0, time.UTC)

type fixture struct {
	srv   *httptest.Server
	store *memory.Store
}

func newFixture(t *testing.T, secret string) *fixture {
	t.Helper()
	store := memory.New()
	s, err := webhook.NewServer(context.Background(), webhook.Config{
		Store:  store,
		Locker: memory.NewLocker(),
		Secret: secret,
		Logger: logging.NewNop(),
		Now:    func() time.Time { return now },
	})
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, store: store}
}

func (f *fixture) post(t *testing.T, path, body string, header map[string]string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp.StatusCode, out
}

const analyzed = `{
	"event": "call_analyzed",
	"call_id": "call_1",
	"agent_id": "agent_1",
	"direction": "inbound",
	"from_number": "+15551234567",
	"dynamic_variables": {"caller_name": "Dana Reyes", "urgency": "today", "service_type": "mowing"},
	"call_analysis": {"call_summary": "Wants a quote.", "user_sentiment": "Neutral", "call_successful": true}
}`

func TestWebhook_CallAnalyzedUpsertsLead(t *testing.T) {
	f := newFixture(t, "")

	code, body := f.post(t, "/webhook", analyzed, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "call_analyzed", body["event"])

	code, _ = f.post(t, "/webhook", strings.Replace(analyzed, "call_analyzed", "call_ended", 1), nil)
	require.Equal(t, http.StatusOK, code)

	all, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1, "both events land on the same lead")
	lead := all[0]
	assert.Equal(t, "Dana Reyes", lead.ContactName)
	assert.Equal(t, domain.ScoreHot, lead.Score)
	assert.Equal(t, domain.StatusInterested, lead.Status)
	assert.Contains(t, lead.Notes, "New call:")
}

func TestWebhook_EventsWithoutLeads(t *testing.T) {
	f := newFixture(t, "")

	code, body := f.post(t, "/webhook", `{"event":"call_started","call_id":"c"}`, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "call_started", body["event"])

	code, _ = f.post(t, "/webhook", `{"event":"call_ended","call_id":"c","from_number":"+15551234567"}`, nil)
	assert.Equal(t, http.StatusOK, code)

	code, body = f.post(t, "/webhook", `{"event":"function_call","call_id":"c","function_call":{"name":"unknown"}}`, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Function call received", body["message"])

	all, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestWebhook_SchemaValidation(t *testing.T) {
	f := newFixture(t, "")
	tests := map[string]string{
		"unknown event":   `{"event":"call_exploded","call_id":"c"}`,
		"missing call id": `{"event":"call_started"}`,
		"bad direction":   `{"event":"call_started","call_id":"c","direction":"sideways"}`,
		"not json":        `{"event":`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			code, out := f.post(t, "/webhook", body, nil)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, false, out["success"])
		})
	}
}

func TestWebhook_Signature(t *testing.T) {
	f := newFixture(t, "s3cret")
	body := `{"event":"call_started","call_id":"c"}`

	code, _ := f.post(t, "/webhook", body, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = f.post(t, "/webhook", body, map[string]string{webhook.SignatureHeader: webhook.Sign("wrong", []byte(body), now)})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = f.post(t, "/webhook", body, map[string]string{webhook.SignatureHeader: webhook.Sign("s3cret", []byte(body), now)})
	assert.Equal(t, http.StatusOK, code)
}

func TestFunctions_Signature(t *testing.T) {
	f := newFixture(t, "s3cret")
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, &domain.Lead{
		ID:     "L1",
		Phone:  "+15551234567",
		Status: domain.StatusContacted,
		Score:  domain.ScoreWarm,
	}))
	body := `{"lead_id":"L1","status":"meeting_scheduled"}`

	code, _ := f.post(t, "/functions/update_lead_status", body, nil)
	assert.Equal(t, http.StatusUnauthorized, code, "unsigned calls are refused when a secret is set")
	lead, err := f.store.Get(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusContacted, lead.Status)

	code, _ = f.post(t, "/functions/update_lead_status", body, map[string]string{webhook.SignatureHeader: webhook.Sign("wrong", []byte(body), now)})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, out := f.post(t, "/functions/update_lead_status", body, map[string]string{webhook.SignatureHeader: webhook.Sign("s3cret", []byte(body), now)})
	require.Equal(t, http.StatusOK, code, out)
	lead, err = f.store.Get(ctx, "L1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMeetingScheduled, lead.Status)
}

func TestVerify(t *testing.T) {
	body := []byte(`{"a":1}`)
	sig := webhook.Sign("k", body, now)
	assert.NoError(t, webhook.Verify("k", body, sig, now.Add(time.Minute)))
	assert.ErrorIs(t, webhook.Verify("k", body, sig, now.Add(time.Hour)), webhook.ErrStaleSignature)
	assert.ErrorIs(t, webhook.Verify("k", []byte(`{"a":2}`), sig, now), webhook.ErrBadSignature)
	assert.ErrorIs(t, webhook.Verify("k", body, "garbage", now), webhook.ErrBadSignature)
	assert.ErrorIs(t, webhook.Verify("k", body, "", now), webhook.ErrMissingSignature)
}

func TestMockSlots(t *testing.T) {
	slots := webhook.MockSlots(time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC)) // Saturday
	require.Len(t, slots, 6)
	assert.Equal(t, "2026-03-09T09:00:00Z", slots[0].DateTime, "Sunday is skipped")
	assert.Equal(t, "Monday, March 09 at 09:00 AM", slots[0].Display)
	assert.Equal(t, "Monday, March 09 at 04:00 PM", slots[3].Display)
	assert.Equal(t, "2026-03-10T11:00:00Z", slots[5].DateTime)
}

func TestFunctions_CheckAvailability(t *testing.T) {
	f := newFixture(t, "")

	code, body := f.post(t, "/functions/check_calendar_availability", `{}`, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["slots"], 6)
	assert.Equal(t, "Wednesday, March 04 at 09:00 AM", body["next_available"])

	code, body = f.post(t, "/functions/check_calendar_availability", `{"args":{"preferred_date":"2026-03-05"}}`, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["slots"], 2)
	assert.Equal(t, "Thursday, March 05 at 09:00 AM", body["next_available"])
}

func TestFunctions_CreateBooking(t *testing.T) {
	f := newFixture(t, "")

	code, body := f.post(t, "/functions/create_calendar_booking", `{"args":{
		"attendee_name": "Dana Reyes",
		"attendee_phone": "(555) 123-4567",
		"business_name": "Green Valley",
		"start_time": "2026-03-04T09:00:00Z"
	}}`, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["success"])
	assert.Regexp(t, `^APT-[0-9A-F]{8}$`, body["confirmation_number"])
	assert.Equal(t, "Wednesday, March 04 at 09:00 AM", body["datetime"])
	assert.Equal(t, "Appointment confirmed for Wednesday, March 04 at 09:00 AM", body["message"])

	lead, err := f.store.FindByPhone(context.Background(), "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMeetingScheduled, lead.Status)
	assert.Equal(t, "Green Valley", lead.BusinessName)

	code, _ = f.post(t, "/functions/create_calendar_booking", `{"attendee_name":"Dana","start_time":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, code, "attendee_phone is required")

	code, _ = f.post(t, "/functions/create_calendar_booking", `{"attendee_name":"Dana","attendee_phone":"12","start_time":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, code, "unusable phone")
}

func TestFunctions_UpdateLeadStatus(t *testing.T) {
	f := newFixture(t, "")
	code, _ := f.post(t, "/webhook", analyzed, nil)
	require.Equal(t, http.StatusOK, code)

	code, body := f.post(t, "/functions/update_lead_status", `{
		"args": {"status": "callback_scheduled", "callback_date": "Friday", "notes": "after 3pm"},
		"call": {"call_id": "c", "direction": "inbound", "from_number": "+15551234567"}
	}`, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "interested", body["status"])

	lead, err := f.store.FindByPhone(context.Background(), "+15551234567")
	require.NoError(t, err)
	assert.Contains(t, lead.Notes, "Outcome: callback_scheduled")
	assert.Contains(t, lead.Notes, "Notes: after 3pm")

	code, _ = f.post(t, "/functions/update_lead_status", `{"phone":"+15551234567"}`, nil)
	assert.Equal(t, http.StatusBadRequest, code, "status is required")

	code, _ = f.post(t, "/functions/update_lead_status", `{"status":"interested","phone":"+15550000000"}`, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = f.post(t, "/functions/nope", `{}`, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestFunctionCallEvent(t *testing.T) {
	f := newFixture(t, "")
	code, body := f.post(t, "/webhook", `{"event":"function_call","call_id":"c","function_call":{"name":"check_calendar_availability","args":{}}}`, nil)
	require.Equal(t, http.StatusOK, code)
	result, ok := body["result"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, result["slots"], 6)
}

func TestReadEndpoints(t *testing.T) {
	f := newFixture(t, "")
	_, _ = f.post(t, "/webhook", analyzed, nil)

	for _, path := range []string{"/healthz", "/leads", "/metrics", "/openapi.yaml"} {
		resp, err := f.srv.Client().Get(f.srv.URL + path)
		require.NoError(t, err)
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)

		switch path {
		case "/leads":
			assert.Contains(t, string(data), `"count":1`)
		case "/metrics":
			assert.Contains(t, string(data), `switchboard_webhook_events_total{event="call_analyzed",outcome="ok"} 1`)
			assert.Contains(t, string(data), `switchboard_leads_written_total{action="created"} 1`)
		}
	}
}
