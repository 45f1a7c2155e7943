package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgrierson/monopub/internal/release/adapters/manifest"
)

func writeRepo(t *testing.T, inventory string, manifests map[string]string) string {
	t.Helper()
	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, WorkspaceFile), []byte(inventory), 0o644))
	for dir, body := range manifests {
		require.NoError(t, os.MkdirAll(filepath.Join(repo, dir), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(repo, dir, manifest.ManifestName), []byte(body), 0o644))
	}
	return repo
}

func TestLoad(t *testing.T) {
	repo := writeRepo(t, `
changesDir: changes
packages:
  - packages/core
  - packages/plugin-a
`, map[string]string{
		"packages/core":     `{"name":"core","version":"1.0.0","shouldPublish":true}`,
		"packages/plugin-a": `{"name":"plugin-a","version":"2.3.0","dependencies":{"core":"^1.0.0"}}`,
	})

	adapter := New(repo)
	inv, err := adapter.ReadInventory()
	require.NoError(t, err)
	assert.Equal(t, "changes", inv.ChangesDir)

	packages, err := adapter.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, packages, 2)
	assert.Equal(t, "core", packages[0].Name)
	assert.True(t, packages[0].ShouldPublish)
	assert.Equal(t, "packages/plugin-a", packages[1].Dir)
	assert.Equal(t, "^1.0.0", packages[1].Dependencies["core"])
}

func TestReadInventory_DefaultChangesDir(t *testing.T) {
	repo := writeRepo(t, "packages:\n  - packages/core\n", map[string]string{
		"packages/core": `{"name":"core","version":"1.0.0"}`,
	})

	inv, err := New(repo).ReadInventory()
	require.NoError(t, err)
	assert.Equal(t, DefaultChangesDir, inv.ChangesDir)
}

func TestReadInventory_RequiresPackages(t *testing.T) {
	repo := writeRepo(t, "changesDir: changes\n", nil)

	_, err := New(repo).ReadInventory()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lists no packages")
}

func TestLoad_RejectsDuplicateNames(t *testing.T) {
	repo := writeRepo(t, `
packages:
  - packages/core
  - packages/core-fork
`, map[string]string{
		"packages/core":      `{"name":"core","version":"1.0.0"}`,
		"packages/core-fork": `{"name":"core","version":"1.0.1"}`,
	})

	_, err := New(repo).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `package "core" declared in both`)
}

func TestReadInventory_MissingFile(t *testing.T) {
	_, err := New(t.TempDir()).ReadInventory()
	require.Error(t, err)
}
