package http

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/leads"
	"github.com/aretw0/switchboard/pkg/phone"
	"github.com/aretw0/switchboard/pkg/registry"
	"github.com/aretw0/switchboard/pkg/scoring"
)

// Tool names served under /functions/{name}. They match the tool names the
// templates register on their flows.
const (
	ToolCheckAvailability = "check_calendar_availability"
	ToolCreateBooking     = "create_calendar_booking"
	ToolUpdateLeadStatus  = "update_lead_status"
)

// DisplayLayout renders slot times the way agents read them out.
const DisplayLayout = "Monday, January 02 at 03:04 PM"

var slotHours = []int{9, 11, 14, 16}

const slotCount = 6

// ErrInvalidArgs marks tool arguments that fail validation.
var ErrInvalidArgs = errors.New("invalid arguments")

// Slot is an open appointment time.
type Slot struct {
	DateTime string `json:"datetime"`
	Display  string `json:"display"`
}

// Availability is the answer of check_calendar_availability.
type Availability struct {
	Slots         []Slot `json:"slots"`
	NextAvailable string `json:"next_available"`
}

// Booking is the answer of create_calendar_booking.
type Booking struct {
	Success            bool   `json:"success"`
	ConfirmationNumber string `json:"confirmation_number"`
	DateTime           string `json:"datetime"`
	Message            string `json:"message"`
}

// MockSlots returns the next six slots after now: Monday to Saturday, starting
// tomorrow, at 9, 11, 14 and 16 o'clock in now's location.
func MockSlots(now time.Time) []Slot {
	var slots []Slot
	day := now.AddDate(0, 0, 1)
	for len(slots) < slotCount {
		if day.Weekday() != time.Sunday {
			for _, h := range slotHours {
				at := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, now.Location())
				if !at.After(now) {
					continue
				}
				slots = append(slots, Slot{DateTime: at.Format(time.RFC3339), Display: at.Format(DisplayLayout)})
				if len(slots) == slotCount {
					break
				}
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return slots
}

type availabilityArgs struct {
	PreferredDate string `mapstructure:"preferred_date"`
	ServiceType   string `mapstructure:"service_type"`
}

type bookingArgs struct {
	AttendeeName  string `mapstructure:"attendee_name"`
	AttendeePhone string `mapstructure:"attendee_phone"`
	AttendeeEmail string `mapstructure:"attendee_email"`
	BusinessName  string `mapstructure:"business_name"`
	StartTime     string `mapstructure:"start_time"`
	ServiceType   string `mapstructure:"service_type"`
	Notes         string `mapstructure:"notes"`
}

type leadStatusArgs struct {
	Status       string `mapstructure:"status"`
	CallbackDate string `mapstructure:"callback_date"`
	CallbackTime string `mapstructure:"callback_time"`
	Notes        string `mapstructure:"notes"`
	LeadID       string `mapstructure:"lead_id"`
	Phone        string `mapstructure:"phone"`
}

// callOutcomes maps the outcomes agents report to pipeline stages.
var callOutcomes = map[string]domain.LeadStatus{
	string(domain.StatusNew):              domain.StatusNew,
	string(domain.StatusContacted):        domain.StatusContacted,
	string(domain.StatusInterested):       domain.StatusInterested,
	string(domain.StatusMeetingScheduled): domain.StatusMeetingScheduled,
	"callback_scheduled":                  domain.StatusInterested,
	"warm_lead":                           domain.StatusInterested,
	"not_interested":                      domain.StatusContacted,
	"wrong_number":                        domain.StatusContacted,
}

func decodeArgs(args map[string]any, out any) error {
	if err := mapstructure.WeakDecode(args, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return nil
}

// registerTools wires the built-in tools into reg.
func (s *Server) registerTools(reg *registry.Registry) {
	reg.Register(ToolCheckAvailability, s.checkAvailability)
	reg.Register(ToolCreateBooking, s.createBooking)
	reg.Register(ToolUpdateLeadStatus, s.updateLeadStatus)
}

func (s *Server) checkAvailability(ctx context.Context, args map[string]any) (any, error) {
	var in availabilityArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	slots := MockSlots(s.now())
	if in.PreferredDate != "" {
		if day, err := time.Parse(time.DateOnly, in.PreferredDate); err == nil {
			prefix := day.Format(time.DateOnly)
			filtered := []Slot{}
			for _, sl := range slots {
				if strings.HasPrefix(sl.DateTime, prefix) {
					filtered = append(filtered, sl)
				}
			}
			slots = filtered
		}
	}

	out := Availability{Slots: slots, NextAvailable: "No availability found"}
	if len(slots) > 0 {
		out.NextAvailable = slots[0].Display
	}
	return out, nil
}

func (s *Server) createBooking(ctx context.Context, args map[string]any) (any, error) {
	var in bookingArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	in.AttendeeName = strings.TrimSpace(in.AttendeeName)
	if in.AttendeeName == "" || strings.TrimSpace(in.StartTime) == "" {
		return nil, fmt.Errorf("%w: attendee_name and start_time are required", ErrInvalidArgs)
	}
	p := phone.Check(in.AttendeePhone)
	if !p.Valid {
		return nil, fmt.Errorf("%w: attendee_phone %q: %s", ErrInvalidArgs, in.AttendeePhone, p.Reason)
	}

	formatted := in.StartTime
	if at, err := time.Parse(time.RFC3339, in.StartTime); err == nil {
		formatted = at.Format(DisplayLayout)
	}
	confirmation := leads.NewConfirmation()

	if s.store != nil {
		now := s.now()
		lead := &domain.Lead{
			ID:            leads.NewID(now),
			ContactName:   in.AttendeeName,
			BusinessName:  strings.TrimSpace(in.BusinessName),
			Phone:         p.Normalized,
			Email:         strings.TrimSpace(in.AttendeeEmail),
			Industry:      in.ServiceType,
			Status:        domain.StatusMeetingScheduled,
			Score:         domain.ScoreHot,
			Notes:         fmt.Sprintf("Appointment %s for %s", confirmation, formatted),
			Source:        "booking",
			LastContacted: now.UTC(),
			CreatedAt:     now.UTC(),
		}
		if in.Notes != "" {
			lead.Notes += "\nNotes: " + in.Notes
		}
		res, err := leads.Upsert(ctx, s.store, s.locker, lead, now)
		if err != nil {
			return nil, err
		}
		s.countLead(res)
	}

	s.logger.Info("Appointment booked", "confirmation", confirmation, "datetime", formatted)
	return Booking{
		Success:            true,
		ConfirmationNumber: confirmation,
		DateTime:           formatted,
		Message:            "Appointment confirmed for " + formatted,
	}, nil
}

func (s *Server) updateLeadStatus(ctx context.Context, args map[string]any) (any, error) {
	var in leadStatusArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	outcome := strings.ToLower(strings.TrimSpace(in.Status))
	if outcome == "" {
		return nil, fmt.Errorf("%w: status is required", ErrInvalidArgs)
	}
	status, ok := callOutcomes[outcome]
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidArgs, in.Status)
	}
	if s.store == nil {
		return nil, errors.New("no lead store configured")
	}

	var lead *domain.Lead
	var err error
	switch {
	case in.LeadID != "":
		lead, err = s.store.Get(ctx, in.LeadID)
	case in.Phone != "":
		lead, err = s.store.FindByPhone(ctx, in.Phone)
	default:
		return nil, fmt.Errorf("%w: lead_id or phone is required", ErrInvalidArgs)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	lead.Status = status
	lead.LastContacted = now.UTC()
	if note := outcomeNote(outcome, in); note != "" {
		lead.Notes = scoring.AppendNotes(lead.Notes, note, now)
	}
	if err := s.store.Save(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to update lead %s: %w", lead.ID, err)
	}
	return map[string]any{"success": true, "lead_id": lead.ID, "status": lead.Status}, nil
}

func outcomeNote(outcome string, in leadStatusArgs) string {
	var lines []string
	if outcome != string(domain.StatusNew) {
		lines = append(lines, "Outcome: "+outcome)
	}
	if when := strings.TrimSpace(in.CallbackDate + " " + in.CallbackTime); when != "" {
		lines = append(lines, "Callback: "+when)
	}
	if in.Notes != "" {
		lines = append(lines, "Notes: "+in.Notes)
	}
	return strings.Join(lines, "\n")
}
