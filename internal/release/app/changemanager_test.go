package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgrierson/monopub/internal/release/domain"
	"github.com/jgrierson/monopub/internal/release/ports"
)

func pkg(name, version string, publish bool, deps map[string]string) domain.Package {
	return domain.Package{
		Name:          name,
		Version:       version,
		ShouldPublish: publish,
		Dir:           "packages/" + name,
		Dependencies:  deps,
	}
}

func newTestManager(packages []domain.Package, store *fakeChangeStore) (*ChangeManager, *fakeManifests, *fakeChangelog) {
	manifests := &fakeManifests{}
	changelogs := &fakeChangelog{}
	return NewChangeManager(packages, store, manifests, changelogs, testLogger()), manifests, changelogs
}

func TestChangeManager_CascadeFixedPoint(t *testing.T) {
	// C depends on B depends on A; only A has an explicit change. Both B and
	// C must be elevated to dependency through the chain.
	packages := []domain.Package{
		pkg("pkg-a", "1.0.0", true, nil),
		pkg("pkg-b", "1.1.0", true, map[string]string{"pkg-a": "^1.0.0"}),
		pkg("pkg-c", "0.5.0", true, map[string]string{"pkg-b": "^1.1.0"}),
	}
	store := &fakeChangeStore{pending: []ports.PendingChange{
		request("pkg-a", domain.ChangeMajor, "breaking API change"),
	}}
	mgr, manifests, _ := newTestManager(packages, store)

	require.NoError(t, mgr.Load(context.Background(), domain.PrereleaseToken{}, false))
	require.True(t, mgr.HasChanges())

	changes := mgr.Changes()
	require.Len(t, changes, 3)

	a, ok := changes.Lookup("pkg-a")
	require.True(t, ok)
	assert.Equal(t, domain.ChangeMajor, a.Type)
	assert.Equal(t, "2.0.0", a.NewVersion)

	for _, name := range []string{"pkg-b", "pkg-c"} {
		ci, ok := changes.Lookup(name)
		require.True(t, ok, "expected %s in cascade", name)
		assert.Equal(t, domain.ChangeDependency, ci.Type, "%s should be a dependency bump", name)
		assert.Equal(t, ci.OldVersion, ci.NewVersion, "%s version should not change", name)
	}

	// Dependents get their manifests pointed at the new dependency version.
	require.NoError(t, mgr.Apply(context.Background(), false))
	assert.Equal(t, map[string]string{"pkg-a": "2.0.0"}, manifests.editFor(t, "pkg-b").bumpedDeps)
	assert.Empty(t, manifests.editFor(t, "pkg-c").bumpedDeps, "pkg-c depends only on pkg-b, which was not bumped")
}

func TestChangeManager_TopologicalInvariant(t *testing.T) {
	// Diamond: app depends on both libs, both libs depend on base.
	packages := []domain.Package{
		pkg("app", "1.0.0", true, map[string]string{"lib-x": "^1.0.0", "lib-y": "^1.0.0"}),
		pkg("lib-x", "1.0.0", true, map[string]string{"base": "^1.0.0"}),
		pkg("lib-y", "1.0.0", true, map[string]string{"base": "^1.0.0"}),
		pkg("base", "1.0.0", true, nil),
	}
	store := &fakeChangeStore{pending: []ports.PendingChange{
		request("base", domain.ChangeMinor, "new helper"),
		request("lib-y", domain.ChangePatch, "bugfix"),
	}}
	mgr, _, _ := newTestManager(packages, store)

	require.NoError(t, mgr.Load(context.Background(), domain.PrereleaseToken{}, false))
	changes := mgr.Changes()
	require.Len(t, changes, 4)

	index := make(map[string]int)
	for i, ci := range changes {
		index[ci.PackageName] = i
		assert.Equal(t, i, ci.Order)
	}
	for _, p := range packages {
		for dep := range p.Dependencies {
			di, inCascade := index[dep]
			if !inCascade {
				continue
			}
			assert.Less(t, di, index[p.Name],
				"dependency %s must precede dependent %s", dep, p.Name)
		}
	}
}

func TestChangeManager_MergesDuplicatesAtMaximum(t *testing.T) {
	packages := []domain.Package{pkg("core", "1.0.0", true, nil)}
	store := &fakeChangeStore{pending: []ports.PendingChange{
		request("core", domain.ChangePatch, "fix one"),
		request("core", domain.ChangeMinor, "feature"),
		request("core", domain.ChangePatch, "fix two"),
	}}
	mgr, _, _ := newTestManager(packages, store)

	require.NoError(t, mgr.Load(context.Background(), domain.PrereleaseToken{}, false))

	ci, ok := mgr.Changes().Lookup("core")
	require.True(t, ok)
	assert.Equal(t, domain.ChangeMinor, ci.Type)
	assert.Equal(t, "1.1.0", ci.NewVersion)
	assert.Len(t, ci.Requests, 3, "all requests are kept for the changelog")
}

func TestChangeManager_UnknownPackageSkipped(t *testing.T) {
	packages := []domain.Package{pkg("core", "1.0.0", true, nil)}
	store := &fakeChangeStore{pending: []ports.PendingChange{
		request("ghost", domain.ChangeMajor, "who?"),
		request("core", domain.ChangePatch, "fix"),
	}}
	mgr, _, _ := newTestManager(packages, store)

	require.NoError(t, mgr.Load(context.Background(), domain.PrereleaseToken{}, false),
		"an unknown package reference must not fail the run")

	changes := mgr.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, "core", changes[0].PackageName)

	// The unknown package's file must survive a real apply.
	require.NoError(t, mgr.Apply(context.Background(), true))
	assert.NotContains(t, store.deleted, "ghost-major.json")
	assert.Contains(t, store.deleted, "core-patch.json")
}

func TestChangeManager_PrereleaseExclusivity(t *testing.T) {
	packages := []domain.Package{pkg("core", "1.0.0", true, nil)}
	store := &fakeChangeStore{}
	mgr, _, _ := newTestManager(packages, store)

	err := mgr.Load(context.Background(), domain.PrereleaseToken{Name: "beta", Suffix: "dev"}, false)
	var conflict *domain.ConfigConflictError
	require.ErrorAs(t, err, &conflict)
	assert.False(t, store.listCalled, "conflict must be rejected before anything is read")
}

func TestChangeManager_DryRunLeavesStateAlone(t *testing.T) {
	packages := []domain.Package{pkg("core", "1.0.0", true, nil)}
	store := &fakeChangeStore{pending: []ports.PendingChange{
		request("core", domain.ChangeMajor, "breaking"),
	}}
	mgr, manifests, changelogs := newTestManager(packages, store)

	require.NoError(t, mgr.Load(context.Background(), domain.PrereleaseToken{}, false))
	require.NoError(t, mgr.Apply(context.Background(), false))
	require.NoError(t, mgr.UpdateChangelogs(context.Background(), false))

	for _, e := range manifests.edits {
		assert.False(t, e.write, "dry run must not write manifests")
	}
	for _, ap := range changelogs.appends {
		assert.False(t, ap.write, "dry run must not write changelogs")
	}
	assert.Empty(t, store.deleted, "dry run must not delete change files")
}

func TestChangeManager_ExampleScenario(t *testing.T) {
	// core 1.0.0 gets a major change; plugin-a depends on core ^1.0.0 and
	// stays at 2.3.0 with only its range refreshed.
	packages := []domain.Package{
		pkg("core", "1.0.0", true, nil),
		pkg("plugin-a", "2.3.0", true, map[string]string{"core": "^1.0.0"}),
	}
	store := &fakeChangeStore{pending: []ports.PendingChange{
		request("core", domain.ChangeMajor, "new plugin API"),
	}}
	mgr, manifests, _ := newTestManager(packages, store)

	require.NoError(t, mgr.Load(context.Background(), domain.PrereleaseToken{}, false))

	changes := mgr.Changes()
	require.Len(t, changes, 2)
	assert.Equal(t, "core", changes[0].PackageName)
	assert.Equal(t, "plugin-a", changes[1].PackageName)

	core := changes[0]
	assert.Equal(t, domain.ChangeMajor, core.Type)
	assert.Equal(t, "2.0.0", core.NewVersion)

	plugin := changes[1]
	assert.Equal(t, domain.ChangeDependency, plugin.Type)
	assert.Equal(t, "2.3.0", plugin.NewVersion)

	publishable := changes.Publishable()
	require.Len(t, publishable, 1, "only core gets published and tagged")
	assert.Equal(t, "core", publishable[0].PackageName)

	require.NoError(t, mgr.Apply(context.Background(), true))
	assert.Equal(t, map[string]string{"core": "2.0.0"}, manifests.editFor(t, "plugin-a").bumpedDeps)
	assert.Equal(t, "2.3.0", manifests.editFor(t, "plugin-a").newVersion)
}

func TestChangeManager_NoChanges(t *testing.T) {
	packages := []domain.Package{pkg("core", "1.0.0", true, nil)}
	mgr, _, _ := newTestManager(packages, &fakeChangeStore{})

	require.NoError(t, mgr.Load(context.Background(), domain.PrereleaseToken{}, false))
	assert.False(t, mgr.HasChanges())
}

func TestChangeManager_CommitDetailsInChangelog(t *testing.T) {
	packages := []domain.Package{pkg("core", "1.0.0", true, nil)}
	store := &fakeChangeStore{pending: []ports.PendingChange{
		{
			File: "core-1.json",
			Request: domain.ChangeRequest{
				PackageName: "core",
				Type:        domain.ChangePatch,
				Comment:     "fix",
				Author:      "dev@example.com",
				CommitHash:  "abc1234",
			},
		},
	}}
	mgr, _, changelogs := newTestManager(packages, store)

	require.NoError(t, mgr.Load(context.Background(), domain.PrereleaseToken{}, true))
	require.NoError(t, mgr.UpdateChangelogs(context.Background(), true))

	require.Len(t, changelogs.appends, 1)
	entry := changelogs.appends[0].entry
	assert.Equal(t, "1.0.1", entry.Version)
	assert.Equal(t, "dev@example.com", entry.Author)
	assert.Equal(t, "abc1234", entry.CommitHash)

	// Without the flag the metadata stays out.
	mgr2, _, changelogs2 := newTestManager(packages, store)
	require.NoError(t, mgr2.Load(context.Background(), domain.PrereleaseToken{}, false))
	require.NoError(t, mgr2.UpdateChangelogs(context.Background(), true))
	require.Len(t, changelogs2.appends, 1)
	assert.Empty(t, changelogs2.appends[0].entry.Author)
}

func TestChangeManager_DependencyCycle(t *testing.T) {
	packages := []domain.Package{
		pkg("ouro", "1.0.0", true, map[string]string{"boros": "^1.0.0"}),
		pkg("boros", "1.0.0", true, map[string]string{"ouro": "^1.0.0"}),
	}
	store := &fakeChangeStore{pending: []ports.PendingChange{
		request("ouro", domain.ChangePatch, "fix"),
	}}
	mgr, _, _ := newTestManager(packages, store)

	err := mgr.Load(context.Background(), domain.PrereleaseToken{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestChangeManager_NoneRequestsReleaseNothing(t *testing.T) {
	packages := []domain.Package{
		pkg("core", "1.0.0", true, nil),
	}
	store := &fakeChangeStore{pending: []ports.PendingChange{
		request("core", domain.ChangeNone, "documented, no release needed"),
	}}
	mgr, manifests, _ := newTestManager(packages, store)

	require.NoError(t, mgr.Load(context.Background(), domain.PrereleaseToken{}, false))
	assert.False(t, mgr.HasChanges(), "a none request must not start a release")
	assert.Empty(t, mgr.Changes())

	// The record is still consumed by a real apply.
	require.NoError(t, mgr.Apply(context.Background(), true))
	assert.Empty(t, manifests.edits)
	assert.Equal(t, []string{"core-none.json"}, store.deleted)
}

func TestChangeManager_NoneSeededDependentIsElevated(t *testing.T) {
	// plugin-a filed an explicit none, but core underneath it moved: the
	// none entry must be raised to a dependency refresh, not left behind.
	packages := []domain.Package{
		pkg("core", "1.0.0", true, nil),
		pkg("plugin-a", "2.3.0", true, map[string]string{"core": "^1.0.0"}),
	}
	store := &fakeChangeStore{pending: []ports.PendingChange{
		request("plugin-a", domain.ChangeNone, "no functional change"),
		request("core", domain.ChangeMajor, "new plugin API"),
	}}
	mgr, manifests, _ := newTestManager(packages, store)

	require.NoError(t, mgr.Load(context.Background(), domain.PrereleaseToken{}, false))

	changes := mgr.Changes()
	require.Len(t, changes, 2)
	ci, ok := changes.Lookup("plugin-a")
	require.True(t, ok)
	assert.Equal(t, domain.ChangeDependency, ci.Type)
	assert.Equal(t, "2.3.0", ci.NewVersion)

	require.NoError(t, mgr.Apply(context.Background(), false))
	assert.Equal(t, map[string]string{"core": "2.0.0"}, manifests.editFor(t, "plugin-a").bumpedDeps)
}
