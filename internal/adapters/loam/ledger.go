// Package loam keeps the deployment ledger in a loam vault, one document per agent.
package loam

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/loam"
	"github.com/aretw0/switchboard/pkg/domain"
)

// DeploymentMetadata is the frontmatter of a ledger document.
// Times are RFC 3339 strings so every serializer reads them back the same way.
type DeploymentMetadata struct {
	AgentID            string `json:"agent_id" mapstructure:"agent_id"`
	ConversationFlowID string `json:"conversation_flow_id" mapstructure:"conversation_flow_id"`
	CompanyName        string `json:"company_name" mapstructure:"company_name"`
	Template           string `json:"template" mapstructure:"template"`
	CreatedAt          string `json:"created_at" mapstructure:"created_at"`
	// DeletedAt marks an agent removed from the platform. The record stays in the vault.
	DeletedAt string `json:"deleted_at,omitempty" mapstructure:"deleted_at"`
}

// Ledger implements ports.DeploymentLedger on a loam typed repository.
type Ledger struct {
	Repo *loam.TypedRepository[DeploymentMetadata]
	now  func() time.Time
}

// New wraps an existing typed repository.
func New(repo *loam.TypedRepository[DeploymentMetadata]) *Ledger {
	return &Ledger{Repo: repo, now: time.Now}
}

// Open initializes a vault at path, without git versioning, and returns its ledger.
func Open(path string) (*Ledger, error) {
	repo, err := loam.Init(path,
		loam.WithVersioning(false),
		loam.WithForceTemp(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[DeploymentMetadata](repo)), nil
}

func docID(agentID string) string {
	return "deployments/" + agentID
}

// Record writes the deployment document, clearing any earlier deletion mark.
func (l *Ledger) Record(ctx context.Context, d domain.Deployment) error {
	meta := DeploymentMetadata{
		AgentID:            d.AgentID,
		ConversationFlowID: d.ConversationFlowID,
		CompanyName:        d.CompanyName,
		Template:           d.Template,
		CreatedAt:          d.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	return l.save(ctx, meta)
}

func (l *Ledger) save(ctx context.Context, meta DeploymentMetadata) error {
	content := fmt.Sprintf("# %s\n\nAgent %s runs conversation flow %s built from the %s template.\n",
		meta.CompanyName, meta.AgentID, meta.ConversationFlowID, meta.Template)
	if meta.DeletedAt != "" {
		content += fmt.Sprintf("\nDeleted at %s.\n", meta.DeletedAt)
	}

	err := l.Repo.Save(ctx, &loam.DocumentModel[DeploymentMetadata]{
		ID:      docID(meta.AgentID),
		Content: content,
		Data:    meta,
	})
	if err != nil {
		return fmt.Errorf("loam save failed for %s: %w", meta.AgentID, err)
	}
	return nil
}

// Get returns a live deployment. Any lookup failure is reported as not found.
func (l *Ledger) Get(ctx context.Context, agentID string) (*domain.Deployment, error) {
	doc, err := l.Repo.Get(ctx, docID(agentID))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDeploymentNotFound, agentID, err)
	}
	if doc.Data.AgentID == "" || doc.Data.DeletedAt != "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrDeploymentNotFound, agentID)
	}
	d, err := toDeployment(doc.Data)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns live deployments, oldest first.
func (l *Ledger) List(ctx context.Context) ([]domain.Deployment, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	out := []domain.Deployment{}
	for _, doc := range docs {
		if doc.Data.AgentID == "" || doc.Data.DeletedAt != "" {
			continue
		}
		d, err := toDeployment(doc.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	domain.SortDeployments(out)
	return out, nil
}

// Delete marks the record as deleted.
func (l *Ledger) Delete(ctx context.Context, agentID string) error {
	doc, err := l.Repo.Get(ctx, docID(agentID))
	if err != nil || doc.Data.DeletedAt != "" {
		return nil
	}
	meta := doc.Data
	meta.DeletedAt = l.now().UTC().Format(time.RFC3339)
	return l.save(ctx, meta)
}

func toDeployment(meta DeploymentMetadata) (domain.Deployment, error) {
	created, err := time.Parse(time.RFC3339Nano, meta.CreatedAt)
	if err != nil {
		return domain.Deployment{}, fmt.Errorf("deployment %s has a bad created_at: %w", meta.AgentID, err)
	}
	return domain.Deployment{
		AgentID:            meta.AgentID,
		ConversationFlowID: meta.ConversationFlowID,
		CompanyName:        meta.CompanyName,
		Template:           meta.Template,
		CreatedAt:          created,
	}, nil
}
