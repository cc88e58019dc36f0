package workspace_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysand-dev/sysand-go/internal/core/workspace"
)

func TestDiscover_FindsProjectInfoInAncestor(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".project.json"), []byte("{}"), 0o644))

	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := workspace.Discover(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestDiscover_FindsSysandToml(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "sysand.toml"), []byte(""), 0o644))

	found, err := workspace.Discover(root)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestDiscover_NoMarkerIsInvalidWorkspace(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_, err := workspace.Discover(dir)
	assert.Error(t, err)
}
