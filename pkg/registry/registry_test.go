package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchboard/pkg/registry"
)

func TestRegistry(t *testing.T) {
	r := registry.NewRegistry()
	r.Register("echo", func(ctx context.Context, args map[string]any) (any, error) {
		return args, nil
	})
	r.Register("count", func(ctx context.Context, args map[string]any) (any, error) {
		return len(args), nil
	})

	assert.Equal(t, []string{"count", "echo"}, r.Names())
	assert.True(t, r.Has("echo"))
	assert.False(t, r.Has("missing"))

	out, err := r.Execute(context.Background(), "count", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out, "nil arguments arrive as an empty map")

	_, err = r.Execute(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, registry.ErrToolNotFound)
}
