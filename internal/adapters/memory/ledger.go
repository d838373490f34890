package memory

import (
	"context"
	"sync"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Ledger implements ports.DeploymentLedger in memory.
type Ledger struct {
	mu          sync.RWMutex
	deployments map[string]domain.Deployment
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{deployments: make(map[string]domain.Deployment)}
}

// Record stores d under its agent ID.
func (l *Ledger) Record(ctx context.Context, d domain.Deployment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deployments[d.AgentID] = d
	return nil
}

// Get returns the deployment of an agent.
func (l *Ledger) Get(ctx context.Context, agentID string) (*domain.Deployment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.deployments[agentID]
	if !ok {
		return nil, domain.ErrDeploymentNotFound
	}
	return &d, nil
}

// List returns every deployment, oldest first.
func (l *Ledger) List(ctx context.Context) ([]domain.Deployment, error) {
	l.mu.RLock()
	out := make([]domain.Deployment, 0, len(l.deployments))
	for _, d := range l.deployments {
		out = append(out, d)
	}
	l.mu.RUnlock()

	domain.SortDeployments(out)
	return out, nil
}

// Delete removes the record of an agent.
func (l *Ledger) Delete(ctx context.Context, agentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.deployments, agentID)
	return nil
}
