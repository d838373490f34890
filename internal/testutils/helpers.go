// Package testutils holds fixtures shared by adapter tests.
package testutils

import (
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// NewVault initializes an unversioned loam vault in a temp dir and returns
// its absolute path with the repository. Extra options are applied last.
func NewVault(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	dir, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "temp dir has no absolute path")

	opts = append([]loam.Option{loam.WithVersioning(false), loam.WithForceTemp(false)}, opts...)
	repo, err := loam.Init(dir, opts...)
	require.NoError(t, err, "failed to init loam vault")

	return dir, repo
}
