package memory

import (
	"context"
	"sync"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/phone"
)

// Store implements ports.LeadStore in memory.
// Safe for concurrent use.
type Store struct {
	leads map[string]domain.Lead
	mu    sync.RWMutex
}

// New creates a new in-memory lead store.
func New() *Store {
	return &Store{
		leads: make(map[string]domain.Lead),
	}
}

// Save stores a copy of the lead.
func (s *Store) Save(ctx context.Context, lead *domain.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[lead.ID] = *lead
	return nil
}

// SaveBatch stores copies of every lead under one lock.
func (s *Store) SaveBatch(ctx context.Context, leads []*domain.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range leads {
		s.leads[l.ID] = *l
	}
	return nil
}

// Get returns a copy of the lead so callers cannot mutate the store.
func (s *Store) Get(ctx context.Context, id string) (*domain.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.leads[id]
	if !ok {
		return nil, domain.ErrLeadNotFound
	}
	return &l, nil
}

// FindByPhone scans every lead.
func (s *Store) FindByPhone(ctx context.Context, number string) (*domain.Lead, error) {
	want := phone.Last10(number)
	leads, _ := s.List(ctx)
	for _, l := range leads {
		if want != "" && phone.Last10(l.Phone) == want {
			return l, nil
		}
	}
	return nil, domain.ErrLeadNotFound
}

// List returns copies of all leads, oldest first.
func (s *Store) List(ctx context.Context) ([]*domain.Lead, error) {
	s.mu.RLock()
	out := make([]*domain.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		l := l
		out = append(out, &l)
	}
	s.mu.RUnlock()

	domain.SortLeads(out)
	return out, nil
}

// Delete removes a lead.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leads, id)
	return nil
}
