package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/phone"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/aretw0/switchboard/pkg/sanitize"
	"github.com/aretw0/switchboard/pkg/scoring"
)

// nameFields are tried in order for the lead's contact name.
var nameFields = []string{"caller_name", "message_name", "business_name"}

// phoneFields are tried in order before falling back to the caller ID.
var phoneFields = []string{"caller_phone", "message_phone"}

// FromCall builds a lead from a call event. It reports false when the call
// collected no name, in which case no lead should be written.
func FromCall(ev *domain.CallEvent, at time.Time) (*domain.Lead, bool) {
	name := firstVar(ev, nameFields...)
	if name == "" {
		return nil, false
	}

	raw := firstVar(ev, phoneFields...)
	if raw == "" {
		raw = ev.FromNumber
	}
	if strings.EqualFold(ev.Direction, "outbound") && raw == ev.FromNumber && ev.ToNumber != "" {
		raw = ev.ToNumber
	}

	analysis := ev.Analysis()
	lead := &domain.Lead{
		ID:            NewID(at),
		ContactName:   name,
		BusinessName:  firstVar(ev, "business_name"),
		Phone:         phone.NormalizeE164(raw),
		Email:         firstVar(ev, "caller_email", "lead_email"),
		Industry:      firstVar(ev, "business_type", "service_type"),
		Status:        scoring.Status(analysis),
		Score:         scoring.Score(ev.DynamicVariables, analysis),
		Notes:         scoring.Notes(ev, at),
		Source:        "call:" + ev.CallID,
		LastContacted: at.UTC(),
		CreatedAt:     at.UTC(),
	}
	if addr := firstVar(ev, "service_address"); addr != "" {
		a := ParseAddress(addr)
		lead.Address, lead.City, lead.State, lead.Zip = a.Street, a.City, a.State, a.Zip
	}
	return lead, true
}

// firstVar returns the first non-empty variable among names. A value that fails
// sanitizing is passed over as if it were absent.
func firstVar(ev *domain.CallEvent, names ...string) string {
	for _, n := range names {
		v, err := sanitize.Variable(n, ev.Var(n))
		if err == nil && v != "" {
			return v
		}
	}
	return ""
}

// Merge folds a lead built from a newer call into an existing record.
// The existing ID, creation time and source are kept, notes are appended, and
// empty incoming fields never blank out stored ones.
func Merge(existing, incoming *domain.Lead, at time.Time) *domain.Lead {
	out := *existing
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&out.ContactName, incoming.ContactName)
	set(&out.BusinessName, incoming.BusinessName)
	set(&out.Phone, incoming.Phone)
	set(&out.Email, incoming.Email)
	set(&out.Address, incoming.Address)
	set(&out.City, incoming.City)
	set(&out.State, incoming.State)
	set(&out.Zip, incoming.Zip)
	set(&out.Industry, incoming.Industry)
	out.Status = incoming.Status
	out.Score = incoming.Score
	out.Notes = scoring.AppendNotes(existing.Notes, incoming.Notes, at)
	out.LastContacted = at.UTC()
	return &out
}

// UpsertResult tells whether Upsert created or updated a lead.
type UpsertResult struct {
	Lead    *domain.Lead
	Created bool
}

// lockTTL bounds how long a crashed writer can block a phone number.
const lockTTL = 10 * time.Second

// Upsert saves lead, merging it into the oldest stored lead with the same last
// ten phone digits. When locker is not nil the lookup and write run under a
// lock on those digits.
func Upsert(ctx context.Context, store ports.LeadStore, locker ports.DistributedLocker, lead *domain.Lead, at time.Time) (*UpsertResult, error) {
	key := phone.Last10(lead.Phone)
	if locker != nil && key != "" {
		unlock, err := locker.Lock(ctx, "phone:"+key, lockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to lock phone %s: %w", key, err)
		}
		defer func() { _ = unlock(context.WithoutCancel(ctx)) }()
	}

	if key != "" {
		existing, err := store.FindByPhone(ctx, lead.Phone)
		switch {
		case err == nil:
			merged := Merge(existing, lead, at)
			if err := store.Save(ctx, merged); err != nil {
				return nil, fmt.Errorf("failed to update lead %s: %w", existing.ID, err)
			}
			return &UpsertResult{Lead: merged}, nil
		case !errors.Is(err, domain.ErrLeadNotFound):
			return nil, fmt.Errorf("failed to look up lead by phone: %w", err)
		}
	}

	if err := store.Save(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to create lead %s: %w", lead.ID, err)
	}
	return &UpsertResult{Lead: lead, Created: true}, nil
}
