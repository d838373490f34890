package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
)

// DefaultRedactions match card numbers and US social security numbers that
// callers sometimes dictate into call notes.
var DefaultRedactions = []string{
	`\b(?:\d[ -]?){12,15}\d\b`,
	`\b\d{3}-\d{2}-\d{4}\b`,
}

const redacted = "***"

type redactionMiddleware struct {
	ports.LeadStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware masks text matching any of the patterns in lead
// notes before they are saved. Reads pass through.
func NewRedactionMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.LeadStore) ports.LeadStore {
		return &redactionMiddleware{LeadStore: next, patterns: patterns}
	}
}

// mask copies the lead so the caller's value is left untouched.
func (m *redactionMiddleware) mask(lead *domain.Lead) *domain.Lead {
	masked := *lead
	for _, p := range m.patterns {
		masked.Notes = p.ReplaceAllString(masked.Notes, redacted)
	}
	return &masked
}

func (m *redactionMiddleware) Save(ctx context.Context, lead *domain.Lead) error {
	return m.LeadStore.Save(ctx, m.mask(lead))
}

func (m *redactionMiddleware) SaveBatch(ctx context.Context, leads []*domain.Lead) error {
	masked := make([]*domain.Lead, len(leads))
	for i, l := range leads {
		masked[i] = m.mask(l)
	}
	return m.LeadStore.SaveBatch(ctx, masked)
}
