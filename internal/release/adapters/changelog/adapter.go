// Package changelog owns the per-package CHANGELOG.json files.
package changelog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jgrierson/monopub/internal/release/domain"
)

// FileName is the per-package changelog file name.
const FileName = "CHANGELOG.json"

// changelogFile is the on-disk shape: append-only entries keyed by version,
// newest first.
type changelogFile struct {
	Name    string                  `json:"name"`
	Entries []domain.ChangelogEntry `json:"entries"`
}

// Adapter implements ports.ChangelogPort over the repository checkout.
type Adapter struct {
	repoDir string
}

// New creates a changelog adapter.
func New(repoDir string) *Adapter {
	return &Adapter{repoDir: repoDir}
}

func (a *Adapter) path(pkg domain.Package) string {
	return filepath.Join(a.repoDir, pkg.Dir, FileName)
}

func (a *Adapter) read(pkg domain.Package) (changelogFile, error) {
	data, err := os.ReadFile(a.path(pkg))
	if os.IsNotExist(err) {
		return changelogFile{Name: pkg.Name}, nil
	}
	if err != nil {
		return changelogFile{}, fmt.Errorf("reading %s: %w", a.path(pkg), err)
	}
	var cf changelogFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return changelogFile{}, fmt.Errorf("parsing %s: %w", a.path(pkg), err)
	}
	return cf, nil
}

func (a *Adapter) write(pkg domain.Package, cf changelogFile) error {
	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding changelog: %w", err)
	}
	if err := os.WriteFile(a.path(pkg), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", a.path(pkg), err)
	}
	return nil
}

// Append prepends the entry (newest first) to the package's changelog.
// When write is false the file stays untouched; the entry is only validated.
func (a *Adapter) Append(_ context.Context, pkg domain.Package, entry domain.ChangelogEntry, write bool) error {
	if entry.Version == "" {
		return fmt.Errorf("changelog entry for %s has no version", pkg.Name)
	}
	if !write {
		return nil
	}
	cf, err := a.read(pkg)
	if err != nil {
		return err
	}
	cf.Entries = append([]domain.ChangelogEntry{entry}, cf.Entries...)
	return a.write(pkg, cf)
}

// Regenerate rewrites the changelog file from its existing entries,
// normalizing formatting drift. A package without a changelog is skipped.
func (a *Adapter) Regenerate(_ context.Context, pkg domain.Package) error {
	if _, err := os.Stat(a.path(pkg)); os.IsNotExist(err) {
		return nil
	}
	cf, err := a.read(pkg)
	if err != nil {
		return err
	}
	if cf.Name == "" {
		cf.Name = pkg.Name
	}
	return a.write(pkg, cf)
}
