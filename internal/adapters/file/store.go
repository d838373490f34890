// Package file writes deployment records as agent_<id>.json files.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/switchboard/pkg/domain"
)

const (
	filePrefix = "agent_"
	fileExt    = ".json"
)

// Ledger implements ports.DeploymentLedger on the local filesystem.
type Ledger struct {
	BasePath string
}

// New creates a Ledger writing to basePath, or to the working directory when it is empty.
func New(basePath string) *Ledger {
	if basePath == "" {
		basePath = "."
	}
	return &Ledger{BasePath: basePath}
}

func (l *Ledger) path(agentID string) string {
	return filepath.Join(l.BasePath, filePrefix+agentID+fileExt)
}

// Record writes the deployment atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (l *Ledger) Record(ctx context.Context, d domain.Deployment) error {
	if d.AgentID == "" {
		return errors.New("agent ID cannot be empty")
	}
	if err := os.MkdirAll(l.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure output directory: %w", err)
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal deployment: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(l.BasePath, "tmp-"+d.AgentID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	dest := l.path(d.AgentID)
	if _, err := os.Stat(dest); err == nil {
		// os.Rename does not replace on Windows.
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to remove existing deployment file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Get reads agent_<id>.json.
func (l *Ledger) Get(ctx context.Context, agentID string) (*domain.Deployment, error) {
	data, err := os.ReadFile(l.path(agentID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrDeploymentNotFound
		}
		return nil, fmt.Errorf("failed to read deployment file: %w", err)
	}

	var d domain.Deployment
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deployment %s: %w", agentID, err)
	}
	return &d, nil
}

// List reads every agent_*.json file in the directory, oldest deployment first.
func (l *Ledger) List(ctx context.Context) ([]domain.Deployment, error) {
	entries, err := os.ReadDir(l.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Deployment{}, nil
		}
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}

	out := []domain.Deployment{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || filepath.Ext(name) != fileExt {
			continue
		}
		d, err := l.Get(ctx, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileExt))
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	domain.SortDeployments(out)
	return out, nil
}

// Delete removes the deployment file.
func (l *Ledger) Delete(ctx context.Context, agentID string) error {
	err := os.Remove(l.path(agentID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete deployment file: %w", err)
	}
	return nil
}
