package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	noopmetric "go.opentelemetry.io/otel/metric/noop"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/jgrierson/monopub/internal/release/domain"
	"github.com/jgrierson/monopub/internal/release/ports"
)

// Fake ports for testing the cascade and the state machine in isolation.

type fakeChangeStore struct {
	pending    []ports.PendingChange
	deleted    []string
	listCalled bool
}

func (f *fakeChangeStore) List(_ context.Context) ([]ports.PendingChange, error) {
	f.listCalled = true
	return f.pending, nil
}

func (f *fakeChangeStore) Save(_ context.Context, req domain.ChangeRequest) (string, error) {
	return req.PackageName + ".json", nil
}

func (f *fakeChangeStore) Delete(_ context.Context, file string) error {
	f.deleted = append(f.deleted, file)
	return nil
}

// manifestEdit records one ManifestPort.Apply invocation.
type manifestEdit struct {
	pkg        string
	newVersion string
	bumpedDeps map[string]string
	write      bool
}

type fakeManifests struct {
	edits []manifestEdit
}

func (f *fakeManifests) Apply(_ context.Context, pkg domain.Package, newVersion string, bumpedDeps map[string]string, write bool) (string, error) {
	f.edits = append(f.edits, manifestEdit{
		pkg:        pkg.Name,
		newVersion: newVersion,
		bumpedDeps: bumpedDeps,
		write:      write,
	})
	return "--- preview ---", nil
}

func (f *fakeManifests) editFor(t *testing.T, pkg string) manifestEdit {
	t.Helper()
	for _, e := range f.edits {
		if e.pkg == pkg {
			return e
		}
	}
	t.Fatalf("no manifest edit recorded for %s", pkg)
	return manifestEdit{}
}

type changelogAppend struct {
	pkg   string
	entry domain.ChangelogEntry
	write bool
}

type fakeChangelog struct {
	appends     []changelogAppend
	regenerated []string
}

func (f *fakeChangelog) Append(_ context.Context, pkg domain.Package, entry domain.ChangelogEntry, write bool) error {
	f.appends = append(f.appends, changelogAppend{pkg: pkg.Name, entry: entry, write: write})
	return nil
}

func (f *fakeChangelog) Regenerate(_ context.Context, pkg domain.Package) error {
	f.regenerated = append(f.regenerated, pkg.Name)
	return nil
}

// fakeGit records the sequence of git operations and can fail any one of
// them by name.
type fakeGit struct {
	calls  []string
	failOn map[string]error
	branch string
	dirty  bool
}

func newFakeGit() *fakeGit {
	return &fakeGit{failOn: map[string]error{}, branch: "main"}
}

func (f *fakeGit) record(op string) error {
	f.calls = append(f.calls, op)
	return f.failOn[op]
}

func (f *fakeGit) CurrentBranch(_ context.Context) (string, error) {
	return f.branch, f.record("CurrentBranch")
}

func (f *fakeGit) EnsureCleanTree(_ context.Context) error {
	if err := f.record("EnsureCleanTree"); err != nil {
		return err
	}
	if f.dirty {
		return fmt.Errorf("working tree has uncommitted changes")
	}
	return nil
}

func (f *fakeGit) CheckoutNew(_ context.Context, branch string) error {
	return f.record("CheckoutNew " + branch)
}

func (f *fakeGit) Checkout(_ context.Context, branch string) error {
	return f.record("Checkout " + branch)
}

func (f *fakeGit) StageAll(_ context.Context) error { return f.record("StageAll") }

func (f *fakeGit) Commit(_ context.Context, _ string) error { return f.record("Commit") }

func (f *fakeGit) Push(_ context.Context, branch string) error {
	return f.record("Push " + branch)
}

func (f *fakeGit) Pull(_ context.Context) error { return f.record("Pull") }

func (f *fakeGit) Merge(_ context.Context, branch string) error {
	return f.record("Merge " + branch)
}

func (f *fakeGit) Tag(_ context.Context, name, _ string) error {
	return f.record("Tag " + name)
}

func (f *fakeGit) PushTags(_ context.Context) error { return f.record("PushTags") }

func (f *fakeGit) DeleteBranch(_ context.Context, branch string) error {
	return f.record("DeleteBranch " + branch)
}

func (f *fakeGit) callsNamed(prefix string) []string {
	var out []string
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			out = append(out, c)
		}
	}
	return out
}

// publishCall records one registry publish.
type publishCall struct {
	pkg     string
	version string
	opts    ports.PublishOptions
}

type fakeRegistry struct {
	publishes []publishCall
	failFor   map[string]error
	existing  map[string][]string // package name -> published versions
	lookupErr map[string]error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		failFor:   map[string]error{},
		existing:  map[string][]string{},
		lookupErr: map[string]error{},
	}
}

func (f *fakeRegistry) Publish(_ context.Context, pkg domain.Package, opts ports.PublishOptions) error {
	f.publishes = append(f.publishes, publishCall{pkg: pkg.Name, version: pkg.Version, opts: opts})
	return f.failFor[pkg.Name]
}

func (f *fakeRegistry) VersionExists(_ context.Context, pkg domain.Package, _ string) (bool, error) {
	if err := f.lookupErr[pkg.Name]; err != nil {
		return false, err
	}
	for _, v := range f.existing[pkg.Name] {
		if v == pkg.Version {
			return true, nil
		}
	}
	return false, nil
}

type fakeNotifier struct {
	releases []string
	err      error
}

func (f *fakeNotifier) CreateRelease(_ context.Context, tag string, _ domain.ChangelogEntry) error {
	f.releases = append(f.releases, tag)
	return f.err
}

// testLogger discards output; slog has no native nop handler at our level.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedClock pins the temp branch name so tests can assert on it.
func fixedClock(t *testing.T) func() time.Time {
	t.Helper()
	return func() time.Time { return time.Unix(1700000000, 0) }
}

func request(pkg string, t domain.ChangeType, comment string) ports.PendingChange {
	return ports.PendingChange{
		File: pkg + "-" + t.String() + ".json",
		Request: domain.ChangeRequest{
			PackageName: pkg,
			Type:        t,
			Comment:     comment,
		},
	}
}

func newTestOrchestrator(
	t *testing.T,
	packages []domain.Package,
	store *fakeChangeStore,
	git *fakeGit,
	registry *fakeRegistry,
	notifier ports.ReleaseNotifierPort,
) (*Orchestrator, *fakeManifests, *fakeChangelog) {
	t.Helper()
	manifests := &fakeManifests{}
	changelogs := &fakeChangelog{}
	manager := NewChangeManager(packages, store, manifests, changelogs, testLogger())

	orch, err := NewOrchestrator(
		packages, manager, changelogs, git, registry, notifier,
		testLogger(),
		noopmetric.NewMeterProvider().Meter("test"),
		nooptrace.NewTracerProvider().Tracer("test"),
	)
	if err != nil {
		t.Fatalf("creating orchestrator: %v", err)
	}
	return orch, manifests, changelogs
}
