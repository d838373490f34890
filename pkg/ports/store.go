package ports

import (
	"context"

	"github.com/aretw0/switchboard/pkg/domain"
)

// LeadStore defines the interface for persisting CRM leads.
type LeadStore interface {
	// Save inserts or replaces the lead with the same ID.
	Save(ctx context.Context, lead *domain.Lead) error

	// SaveBatch saves every lead. Implementations may do it in one round trip.
	SaveBatch(ctx context.Context, leads []*domain.Lead) error

	// Get retrieves a lead by ID.
	// Returns domain.ErrLeadNotFound if the lead does not exist.
	Get(ctx context.Context, id string) (*domain.Lead, error)

	// FindByPhone returns the oldest lead whose phone shares the last 10 digits with phone.
	// Returns domain.ErrLeadNotFound if none does.
	FindByPhone(ctx context.Context, phone string) (*domain.Lead, error)

	// List returns every lead, oldest first.
	List(ctx context.Context) ([]*domain.Lead, error)

	// Delete removes a lead. Deleting a missing lead is not an error.
	Delete(ctx context.Context, id string) error
}

// DeploymentLedger records the agents created on the platform.
type DeploymentLedger interface {
	// Record stores a deployment, replacing any record for the same agent.
	Record(ctx context.Context, d domain.Deployment) error

	// Get returns the deployment of an agent.
	// Returns domain.ErrDeploymentNotFound if none was recorded.
	Get(ctx context.Context, agentID string) (*domain.Deployment, error)

	// List returns every deployment, oldest first.
	List(ctx context.Context) ([]domain.Deployment, error)

	// Delete removes the record of an agent.
	Delete(ctx context.Context, agentID string) error
}
