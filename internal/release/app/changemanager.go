// Package app implements the publish orchestration engine: the change
// cascade computation and the release state machine that sequences source
// control and registry operations.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jgrierson/monopub/internal/release/domain"
	"github.com/jgrierson/monopub/internal/release/ports"
)

// ChangeManager loads pending change requests and expands them into a
// dependency-consistent, ordered cascade of per-package version decisions.
type ChangeManager struct {
	packages  map[string]domain.Package
	store     ports.ChangeStorePort
	manifests ports.ManifestPort
	changelog ports.ChangelogPort
	logger    *slog.Logger

	includeCommitDetails bool
	changes              domain.OrderedChangeList
	appliedFiles         []string // change files consumed by the loaded cascade
}

// NewChangeManager creates a ChangeManager over the given workspace packages.
func NewChangeManager(
	packages []domain.Package,
	store ports.ChangeStorePort,
	manifests ports.ManifestPort,
	changelog ports.ChangelogPort,
	logger *slog.Logger,
) *ChangeManager {
	byName := make(map[string]domain.Package, len(packages))
	for _, p := range packages {
		byName[p.Name] = p
	}
	return &ChangeManager{
		packages:  byName,
		store:     store,
		manifests: manifests,
		changelog: changelog,
		logger:    logger,
	}
}

// Load reads all pending change requests, merges duplicates per package at
// the maximum magnitude, propagates dependency bumps across the workspace
// graph to a fixed point, computes new versions, and orders the result so a
// package always follows everything it depends on.
//
// A request naming an unknown package is logged and skipped. A prerelease
// token that sets both a name and a suffix is rejected before anything is
// read.
func (m *ChangeManager) Load(ctx context.Context, tok domain.PrereleaseToken, includeCommitDetails bool) error {
	if err := tok.Validate(); err != nil {
		return err
	}
	m.includeCommitDetails = includeCommitDetails
	m.appliedFiles = m.appliedFiles[:0]

	pending, err := m.store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing change requests: %w", err)
	}

	resolved := make(map[string]*domain.ChangeInfo)
	for _, pc := range pending {
		req := pc.Request
		pkg, ok := m.packages[req.PackageName]
		if !ok {
			skipErr := &domain.UnknownPackageError{PackageName: req.PackageName, File: pc.File}
			m.logger.Warn("skipping change request", "error", skipErr)
			continue
		}
		ci, ok := resolved[req.PackageName]
		if !ok {
			ci = &domain.ChangeInfo{PackageName: req.PackageName, OldVersion: pkg.Version}
			resolved[req.PackageName] = ci
		}
		ci.Type = domain.MaxChangeType(ci.Type, req.Type)
		ci.Requests = append(ci.Requests, req)
		m.appliedFiles = append(m.appliedFiles, pc.File)
	}

	m.propagate(resolved)

	// Explicit none requests record intent without releasing anything. Their
	// files were collected above, so a real apply still consumes them.
	for name, ci := range resolved {
		if !ci.Type.RequiresRelease() {
			m.logger.Debug("change request records no release", "package", name)
			delete(resolved, name)
		}
	}

	for name, ci := range resolved {
		next, err := domain.NextVersion(ci.OldVersion, ci.Type, tok)
		if err != nil {
			return fmt.Errorf("computing version for %s: %w", name, err)
		}
		ci.NewVersion = next
	}

	order, err := m.topoOrder(resolved)
	if err != nil {
		return err
	}

	m.changes = m.changes[:0]
	for i, name := range order {
		ci := resolved[name]
		ci.Order = i
		m.changes = append(m.changes, *ci)
		m.logger.Info("resolved change",
			"package", name, "type", ci.Type.String(),
			"from", ci.OldVersion, "to", ci.NewVersion)
	}
	return nil
}

// propagate elevates every package that transitively depends on a changed
// package from none to dependency. Breadth-first over the reverse dependency
// graph with the resolved map as the memo, so each package is decided once
// and the walk terminates at the fixed point.
func (m *ChangeManager) propagate(resolved map[string]*domain.ChangeInfo) {
	dependents := make(map[string][]string)
	for name, pkg := range m.packages {
		for dep := range pkg.Dependencies {
			if _, ok := m.packages[dep]; ok {
				dependents[dep] = append(dependents[dep], name)
			}
		}
	}

	queue := make([]string, 0, len(resolved))
	for name, ci := range resolved {
		if ci.Type.RequiresRelease() {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, dep := range dependents[name] {
			if ci, ok := resolved[dep]; ok {
				// An explicit none entry still needs its ranges refreshed
				// when something below it moved.
				if ci.Type == domain.ChangeNone {
					ci.Type = domain.ChangeDependency
					queue = append(queue, dep)
				}
				continue
			}
			resolved[dep] = &domain.ChangeInfo{
				PackageName: dep,
				Type:        domain.ChangeDependency,
				OldVersion:  m.packages[dep].Version,
			}
			queue = append(queue, dep)
		}
	}
}

// topoOrder sorts the changed set so dependencies precede dependents.
// Ties break lexicographically so runs are reproducible.
func (m *ChangeManager) topoOrder(resolved map[string]*domain.ChangeInfo) ([]string, error) {
	indegree := make(map[string]int, len(resolved))
	edges := make(map[string][]string) // dependency -> dependents, within the changed set
	for name := range resolved {
		indegree[name] = 0
	}
	for name := range resolved {
		for dep := range m.packages[name].Dependencies {
			if _, ok := resolved[dep]; ok {
				edges[dep] = append(edges[dep], name)
				indegree[name]++
			}
		}
	}

	ready := make([]string, 0, len(resolved))
	for name, d := range indegree {
		if d == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(resolved))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		for _, dependent := range edges[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = insertSorted(ready, dependent)
			}
		}
	}
	if len(order) != len(resolved) {
		return nil, fmt.Errorf("dependency cycle among changed packages")
	}
	return order, nil
}

func insertSorted(names []string, name string) []string {
	i := sort.SearchStrings(names, name)
	names = append(names, "")
	copy(names[i+1:], names[i:])
	names[i] = name
	return names
}

// HasChanges reports whether any package resolved to more than none.
func (m *ChangeManager) HasChanges() bool {
	return len(m.changes) > 0
}

// Changes returns the ordered cascade computed by Load.
func (m *ChangeManager) Changes() domain.OrderedChangeList {
	return m.changes
}

// Apply persists the computed version and dependency-range edits to each
// affected manifest. When write is false it is a dry run: intended edits are
// reported (with a diff preview) and nothing touches disk. Change files are
// deleted only after a real apply, so a pending record is never dropped
// unless its edit actually happened.
func (m *ChangeManager) Apply(ctx context.Context, write bool) error {
	for _, ci := range m.changes {
		pkg := m.packages[ci.PackageName]

		bumped := make(map[string]string)
		for dep := range pkg.Dependencies {
			if dci, ok := m.changes.Lookup(dep); ok && dci.Type.RequiresBump() {
				bumped[dep] = dci.NewVersion
			}
		}

		preview, err := m.manifests.Apply(ctx, pkg, ci.NewVersion, bumped, write)
		if err != nil {
			return fmt.Errorf("applying manifest edits for %s: %w", ci.PackageName, err)
		}
		if !write && preview != "" {
			m.logger.Info("would update manifest", "package", ci.PackageName, "diff", "\n"+preview)
		}
	}

	if write {
		for _, f := range m.appliedFiles {
			if err := m.store.Delete(ctx, f); err != nil {
				return fmt.Errorf("deleting change file %s: %w", f, err)
			}
		}
	}
	return nil
}

// UpdateChangelogs appends one entry per changed package summarizing its
// change requests, under the same dry-run contract as Apply.
func (m *ChangeManager) UpdateChangelogs(ctx context.Context, write bool) error {
	for _, ci := range m.changes {
		pkg := m.packages[ci.PackageName]
		entry := m.changelogEntry(ci)
		if err := m.changelog.Append(ctx, pkg, entry, write); err != nil {
			return fmt.Errorf("updating changelog for %s: %w", ci.PackageName, err)
		}
	}
	return nil
}

func (m *ChangeManager) changelogEntry(ci domain.ChangeInfo) domain.ChangelogEntry {
	entry := domain.ChangelogEntry{
		Version:    ci.NewVersion,
		ChangeType: ci.Type.String(),
	}
	var comments []string
	for _, req := range ci.Requests {
		if req.Comment != "" {
			comments = append(comments, req.Comment)
		}
		if m.includeCommitDetails {
			if entry.Author == "" {
				entry.Author = req.Author
			}
			if entry.CommitHash == "" {
				entry.CommitHash = req.CommitHash
			}
		}
	}
	if len(comments) == 0 && ci.Type == domain.ChangeDependency {
		comments = append(comments, "Updating dependency versions")
	}
	entry.Comment = strings.Join(comments, "; ")
	return entry
}
