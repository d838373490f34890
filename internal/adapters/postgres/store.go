// Package postgres stores leads in a PostgreSQL CRM table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/phone"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements ports.LeadStore on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL and creates the leads table if it does not exist.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		contact_name TEXT NOT NULL DEFAULT '',
		business_name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		phone_last10 TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		zip TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		industry TEXT NOT NULL DEFAULT '',
		rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		review_count INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		score TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		last_contacted TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leads_phone_last10 ON leads(phone_last10, created_at);
	CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at, id);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

const columns = `id, contact_name, business_name, phone, email, address, city, state, zip,
	website, industry, rating, review_count, status, score, notes, source, last_contacted, created_at`

const upsert = `
	INSERT INTO leads (` + columns + `, phone_last10)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	ON CONFLICT (id) DO UPDATE SET
		contact_name = EXCLUDED.contact_name,
		business_name = EXCLUDED.business_name,
		phone = EXCLUDED.phone,
		phone_last10 = EXCLUDED.phone_last10,
		email = EXCLUDED.email,
		address = EXCLUDED.address,
		city = EXCLUDED.city,
		state = EXCLUDED.state,
		zip = EXCLUDED.zip,
		website = EXCLUDED.website,
		industry = EXCLUDED.industry,
		rating = EXCLUDED.rating,
		review_count = EXCLUDED.review_count,
		status = EXCLUDED.status,
		score = EXCLUDED.score,
		notes = EXCLUDED.notes,
		source = EXCLUDED.source,
		last_contacted = EXCLUDED.last_contacted,
		created_at = EXCLUDED.created_at
`

// upsertArgs lists the bind values of upsert in column order.
func upsertArgs(l *domain.Lead) []any {
	var lastContacted *time.Time
	if !l.LastContacted.IsZero() {
		t := l.LastContacted
		lastContacted = &t
	}
	return []any{
		l.ID, l.ContactName, l.BusinessName, l.Phone, l.Email, l.Address, l.City, l.State, l.Zip,
		l.Website, l.Industry, l.Rating, l.ReviewCount, string(l.Status), string(l.Score), l.Notes, l.Source,
		lastContacted, l.CreatedAt, phone.Last10(l.Phone),
	}
}

// Save inserts or replaces a lead.
func (s *Store) Save(ctx context.Context, lead *domain.Lead) error {
	if _, err := s.pool.Exec(ctx, upsert, upsertArgs(lead)...); err != nil {
		return fmt.Errorf("failed to save lead %s: %w", lead.ID, err)
	}
	return nil
}

// SaveBatch sends every upsert in one pgx batch inside a transaction.
func (s *Store) SaveBatch(ctx context.Context, leads []*domain.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, l := range leads {
			batch.Queue(upsert, upsertArgs(l)...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save lead batch: %w", err)
		}
		return nil
	})
}

// Get retrieves a lead by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Lead, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+columns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

// FindByPhone uses the phone_last10 index.
func (s *Store) FindByPhone(ctx context.Context, number string) (*domain.Lead, error) {
	suffix := phone.Last10(number)
	if suffix == "" {
		return nil, domain.ErrLeadNotFound
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+columns+` FROM leads WHERE phone_last10 = $1 ORDER BY created_at, id LIMIT 1`, suffix)
	return scanLead(row)
}

// List returns every lead, oldest first.
func (s *Store) List(ctx context.Context) ([]*domain.Lead, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+columns+` FROM leads ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := []*domain.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

// Delete removes a lead.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete lead %s: %w", id, err)
	}
	return nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var (
		l             domain.Lead
		status, score string
		lastContacted *time.Time
	)
	err := row.Scan(
		&l.ID, &l.ContactName, &l.BusinessName, &l.Phone, &l.Email, &l.Address, &l.City, &l.State, &l.Zip,
		&l.Website, &l.Industry, &l.Rating, &l.ReviewCount, &status, &score, &l.Notes, &l.Source,
		&lastContacted, &l.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan lead: %w", err)
	}

	l.Status = domain.LeadStatus(status)
	l.Score = domain.Score(score)
	l.CreatedAt = l.CreatedAt.UTC()
	if lastContacted != nil {
		l.LastContacted = lastContacted.UTC()
	}
	return &l, nil
}
