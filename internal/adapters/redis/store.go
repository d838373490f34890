package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/phone"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.LeadStore using Redis.
//
// Each lead is a JSON string under <prefix><id>. A sorted set <prefix>index
// orders leads by creation time, and one sorted set per phone suffix
// (<prefix>phone:<last10>) backs FindByPhone.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix for leads.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "switchboard:lead:",
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) phoneKey(number string) string {
	return s.prefix + "phone:" + phone.Last10(number)
}

func score(l *domain.Lead) float64 {
	return float64(l.CreatedAt.UnixMilli())
}

// Save persists the lead and moves its phone index entry if the phone changed.
func (s *Store) Save(ctx context.Context, lead *domain.Lead) error {
	return s.SaveBatch(ctx, []*domain.Lead{lead})
}

// SaveBatch writes every lead in one transaction.
func (s *Store) SaveBatch(ctx context.Context, leads []*domain.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	keys := make([]string, len(leads))
	for i, l := range leads {
		keys[i] = s.key(l.ID)
	}
	previous, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("failed to read existing leads: %w", err)
	}

	pipe := s.client.TxPipeline()
	for i, l := range leads {
		data, err := json.Marshal(l)
		if err != nil {
			return fmt.Errorf("failed to marshal lead %s: %w", l.ID, err)
		}

		if raw, ok := previous[i].(string); ok {
			var old domain.Lead
			if err := json.Unmarshal([]byte(raw), &old); err == nil && phone.Last10(old.Phone) != phone.Last10(l.Phone) {
				pipe.ZRem(ctx, s.phoneKey(old.Phone), l.ID)
			}
		}

		pipe.Set(ctx, keys[i], data, 0)
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score(l), Member: l.ID})
		if phone.Last10(l.Phone) != "" {
			pipe.ZAdd(ctx, s.phoneKey(l.Phone), backend.Z{Score: score(l), Member: l.ID})
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Get retrieves a lead from Redis.
func (s *Store) Get(ctx context.Context, id string) (*domain.Lead, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return unmarshalLead(val)
}

// FindByPhone reads the oldest member of the phone's sorted set.
func (s *Store) FindByPhone(ctx context.Context, number string) (*domain.Lead, error) {
	if phone.Last10(number) == "" {
		return nil, domain.ErrLeadNotFound
	}
	ids, err := s.client.ZRange(ctx, s.phoneKey(number), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to search phone index: %w", err)
	}
	if len(ids) == 0 {
		return nil, domain.ErrLeadNotFound
	}
	return s.Get(ctx, ids[0])
}

// List returns leads in index order.
func (s *Store) List(ctx context.Context) ([]*domain.Lead, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Lead{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load leads: %w", err)
	}

	leads := make([]*domain.Lead, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue // deleted between ZRANGE and MGET
		}
		l, err := unmarshalLead(raw)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, nil
}

// Delete removes the lead and its index entries.
func (s *Store) Delete(ctx context.Context, id string) error {
	lead, err := s.Get(ctx, id)
	if errors.Is(err, domain.ErrLeadNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	pipe.ZRem(ctx, s.phoneKey(lead.Phone), id)
	_, err = pipe.Exec(ctx)
	return err
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func unmarshalLead(raw string) (*domain.Lead, error) {
	var lead domain.Lead
	if err := json.Unmarshal([]byte(raw), &lead); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lead: %w", err)
	}
	return &lead, nil
}
