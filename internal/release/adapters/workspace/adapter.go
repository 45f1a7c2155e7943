// Package workspace loads the monorepo's package inventory from the
// monopub.yaml file at the repository root.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jgrierson/monopub/api"
	"github.com/jgrierson/monopub/internal/release/adapters/manifest"
	"github.com/jgrierson/monopub/internal/release/domain"
)

// WorkspaceFile is the inventory file name at the repository root.
const WorkspaceFile = "monopub.yaml"

// DefaultChangesDir is used when the inventory does not override it.
const DefaultChangesDir = "common/changes"

// Adapter implements ports.WorkspacePort.
type Adapter struct {
	repoDir string
}

// New creates a workspace adapter for the given repository directory.
func New(repoDir string) *Adapter {
	return &Adapter{repoDir: repoDir}
}

// ReadInventory parses monopub.yaml and applies defaults.
func (a *Adapter) ReadInventory() (api.Workspace, error) {
	path := filepath.Join(a.repoDir, WorkspaceFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return api.Workspace{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var ws api.Workspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return api.Workspace{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if ws.ChangesDir == "" {
		ws.ChangesDir = DefaultChangesDir
	}
	if len(ws.Packages) == 0 {
		return api.Workspace{}, fmt.Errorf("%s lists no packages", path)
	}
	return ws, nil
}

// Load reads every listed package's manifest into the domain model. Duplicate
// package names are rejected since the cascade is keyed by name.
func (a *Adapter) Load(_ context.Context) ([]domain.Package, error) {
	ws, err := a.ReadInventory()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(ws.Packages))
	out := make([]domain.Package, 0, len(ws.Packages))
	for _, dir := range ws.Packages {
		pkg, err := manifest.ReadPackage(a.repoDir, dir)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[pkg.Name]; ok {
			return nil, fmt.Errorf("package %q declared in both %s and %s", pkg.Name, prev, dir)
		}
		seen[pkg.Name] = dir
		out = append(out, pkg)
	}
	return out, nil
}
