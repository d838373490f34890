package config

import (
	"strings"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/phone"
	"github.com/aretw0/switchboard/pkg/sanitize"
)

// Normalize cleans cfg before it is folded into a template: the company name
// is sanitized, list entries are trimmed, and phone numbers are converted to
// E.164. Phone numbers that still fail validation are returned as warnings;
// they never block a build.
func Normalize(cfg BusinessConfig) (BusinessConfig, []domain.PhoneFormatWarning) {
	cfg.CompanyName = sanitize.CompanyName(cfg.CompanyName)
	cfg.BusinessType = strings.ToLower(strings.TrimSpace(cfg.BusinessType))
	cfg.OwnerName = strings.TrimSpace(cfg.OwnerName)
	cfg.AgentName = strings.TrimSpace(cfg.AgentName)
	cfg.Services = trimList(cfg.Services)
	cfg.ServiceAreas = trimList(cfg.ServiceAreas)

	var warnings []domain.PhoneFormatWarning
	for _, f := range []struct {
		key   string
		value *string
	}{
		{"phone_number", &cfg.PhoneNumber},
		{"transfer_number", &cfg.TransferNumber},
	} {
		if strings.TrimSpace(*f.value) == "" {
			*f.value = ""
			continue
		}
		r := phone.Check(*f.value)
		*f.value = r.Normalized
		if !r.Valid {
			warnings = append(warnings, domain.PhoneFormatWarning{
				Field:      f.key,
				Original:   r.Original,
				Normalized: r.Normalized,
				Reason:     r.Reason,
			})
		}
	}
	return cfg, warnings
}

func trimList(in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
