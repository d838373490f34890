package leads_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchboard/internal/adapters/memory"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/leads"
	"github.com/aretw0/switchboard/pkg/sanitize"
)

var callTime = time.Date(2026, time.March, 2, 15, 4, 5, 0, time.UTC)

func TestNewID(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^LEAD-20260302-[0-9A-F]{8}$`), leads.NewID(callTime))
	assert.Regexp(t, regexp.MustCompile(`^APT-[0-9A-F]{8}$`), leads.NewConfirmation())
	assert.NotEqual(t, leads.NewID(callTime), leads.NewID(callTime))
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in   string
		want leads.Address
	}{
		{"123 Main St, Springfield, IL 62704", leads.Address{Street: "123 Main St", City: "Springfield", State: "IL", Zip: "62704"}},
		{"Suite 4, 9 Oak Ave, Dayton, oh", leads.Address{Street: "Suite 4, 9 Oak Ave", City: "Dayton", State: "OH"}},
		{"behind the old mill", leads.Address{Street: "behind the old mill"}},
		{"1 Elm, Town, Somewhere far", leads.Address{Street: "1 Elm, Town, Somewhere far"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, leads.ParseAddress(tt.in), tt.in)
	}
}

func analyzedCall() *domain.CallEvent {
	return &domain.CallEvent{
		Event:      domain.EventCallAnalyzed,
		CallID:     "call_42",
		FromNumber: "+15551234567",
		DynamicVariables: map[string]string{
			"caller_name":     " Dana Reyes ",
			"service_type":    "lawn care",
			"service_address": "123 Main St, Springfield, IL 62704",
			"urgency":         "today",
		},
		CallAnalysis: &domain.CallAnalysis{CallSummary: "Caller booked a visit.", UserSentiment: "Positive"},
	}
}

func TestFromCall(t *testing.T) {
	lead, ok := leads.FromCall(analyzedCall(), callTime)
	require.True(t, ok)

	assert.Equal(t, "Dana Reyes", lead.ContactName)
	assert.Equal(t, "+15551234567", lead.Phone)
	assert.Equal(t, "lawn care", lead.Industry)
	assert.Equal(t, "123 Main St", lead.Address)
	assert.Equal(t, "IL", lead.State)
	assert.Equal(t, domain.ScoreHot, lead.Score)
	assert.Equal(t, domain.StatusMeetingScheduled, lead.Status)
	assert.Equal(t, "call:call_42", lead.Source)
	assert.Equal(t, callTime, lead.CreatedAt)
	assert.Contains(t, lead.Notes, "Service Needed: lawn care")
}

func TestFromCall_Phones(t *testing.T) {
	ev := analyzedCall()
	ev.DynamicVariables["message_phone"] = "(555) 000-1111"
	lead, _ := leads.FromCall(ev, callTime)
	assert.Equal(t, "+15550001111", lead.Phone, "a phone given during the call wins over caller ID")

	ev = analyzedCall()
	ev.Direction = "outbound"
	ev.ToNumber = "+15557654321"
	lead, _ = leads.FromCall(ev, callTime)
	assert.Equal(t, "+15557654321", lead.Phone, "outbound calls reach the dialed number")
}

func TestFromCall_NoName(t *testing.T) {
	ev := analyzedCall()
	delete(ev.DynamicVariables, "caller_name")
	_, ok := leads.FromCall(ev, callTime)
	assert.False(t, ok)

	ev.DynamicVariables["business_name"] = "Acme Lawns"
	lead, ok := leads.FromCall(ev, callTime)
	require.True(t, ok)
	assert.Equal(t, "Acme Lawns", lead.ContactName)
}

func TestFromCall_SanitizesVariables(t *testing.T) {
	ev := analyzedCall()
	ev.DynamicVariables["caller_name"] = "Dana\x1b[2J Reyes"
	ev.DynamicVariables["caller_email"] = "dana@\xffexample.com"
	ev.DynamicVariables["lead_email"] = "dana@example.com"

	lead, ok := leads.FromCall(ev, callTime)
	require.True(t, ok)
	assert.Equal(t, "Dana[2J Reyes", lead.ContactName)
	assert.Equal(t, "dana@example.com", lead.Email, "an unreadable variable falls through to the next one")

	ev = analyzedCall()
	ev.DynamicVariables["caller_name"] = strings.Repeat("x", sanitize.MaxVariableSize+1)
	delete(ev.DynamicVariables, "message_name")
	delete(ev.DynamicVariables, "business_name")
	_, ok = leads.FromCall(ev, callTime)
	assert.False(t, ok, "an oversized name counts as no name")
}

func TestUpsert(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	locker := memory.NewLocker()

	first, _ := leads.FromCall(analyzedCall(), callTime)
	res, err := leads.Upsert(ctx, store, locker, first, callTime)
	require.NoError(t, err)
	assert.True(t, res.Created)

	later := callTime.Add(24 * time.Hour)
	ev := analyzedCall()
	ev.FromNumber = "555-123-4567"
	ev.DynamicVariables["service_type"] = ""
	ev.DynamicVariables["message_reason"] = "wants a quote"
	second, _ := leads.FromCall(ev, later)

	res, err = leads.Upsert(ctx, store, locker, second, later)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, first.ID, res.Lead.ID)
	assert.Equal(t, "lawn care", res.Lead.Industry, "empty fields keep stored values")
	assert.Equal(t, later, res.Lead.LastContacted)
	assert.Contains(t, res.Lead.Notes, "New call:")
	assert.True(t, strings.HasPrefix(res.Lead.Notes, first.Notes))

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsert_ConcurrentCallsCreateOneLead(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	locker := memory.NewLocker()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lead, _ := leads.FromCall(analyzedCall(), callTime)
			_, err := leads.Upsert(ctx, store, locker, lead, callTime)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

type failingStore struct {
	*memory.Store
	err error
}

func (f failingStore) FindByPhone(context.Context, string) (*domain.Lead, error) {
	return nil, f.err
}

func TestUpsert_LookupError(t *testing.T) {
	boom := errors.New("boom")
	lead, _ := leads.FromCall(analyzedCall(), callTime)
	_, err := leads.Upsert(context.Background(), failingStore{memory.New(), boom}, nil, lead, callTime)
	assert.ErrorIs(t, err, boom)
}
