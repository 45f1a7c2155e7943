package ports

import (
	"context"

	"github.com/jgrierson/monopub/internal/release/domain"
)

// WorkspacePort abstracts loading the monorepo's package inventory.
type WorkspacePort interface {
	Load(ctx context.Context) ([]domain.Package, error)
}

// PendingChange is one change-request record together with the file it was
// read from, so the file can be deleted after a real apply.
type PendingChange struct {
	File    string
	Request domain.ChangeRequest
}

// ChangeStorePort abstracts the change-request directory: enumerate and
// parse pending records, create new ones, and delete applied ones.
type ChangeStorePort interface {
	List(ctx context.Context) ([]PendingChange, error)
	Save(ctx context.Context, req domain.ChangeRequest) (string, error)
	Delete(ctx context.Context, file string) error
}

// ManifestPort abstracts reading and editing one package's manifest.
// Apply sets the package version and rewrites the ranges of the given bumped
// in-repo dependencies; when write is false nothing touches disk and only
// the returned preview describes the intended edit.
type ManifestPort interface {
	Apply(ctx context.Context, pkg domain.Package, newVersion string, bumpedDeps map[string]string, write bool) (preview string, err error)
}

// ChangelogPort abstracts the per-package append-only changelog file.
type ChangelogPort interface {
	Append(ctx context.Context, pkg domain.Package, entry domain.ChangelogEntry, write bool) error
	// Regenerate rewrites the changelog file from its existing entries,
	// normalizing formatting drift.
	Regenerate(ctx context.Context, pkg domain.Package) error
}

// PublishOptions parameterizes one registry publish invocation.
type PublishOptions struct {
	Registry  string // registry URL override
	AuthToken string
	DistTag   string
	Force     bool
	DryRun    bool // print the intended command instead of executing
}

// RegistryPort abstracts the external package registry.
type RegistryPort interface {
	Publish(ctx context.Context, pkg domain.Package, opts PublishOptions) error
	// VersionExists reports whether the package's current local version is
	// already on the registry; bulk re-publish uses it for idempotency.
	VersionExists(ctx context.Context, pkg domain.Package, registry string) (bool, error)
}

// SourceControlPort abstracts the git operations the orchestrator sequences
// against a single repository checkout. Every operation is synchronous and
// propagates its error; DeleteBranch is the one advisory operation.
type SourceControlPort interface {
	CurrentBranch(ctx context.Context) (string, error)
	// EnsureCleanTree is the pre-mutation policy check: it fails when the
	// working tree has uncommitted changes.
	EnsureCleanTree(ctx context.Context) error
	CheckoutNew(ctx context.Context, branch string) error
	Checkout(ctx context.Context, branch string) error
	StageAll(ctx context.Context) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context, branch string) error
	Pull(ctx context.Context) error
	Merge(ctx context.Context, branch string) error
	Tag(ctx context.Context, name, message string) error
	PushTags(ctx context.Context) error
	DeleteBranch(ctx context.Context, branch string) error
}

// DiffPort abstracts unified-diff computation for dry-run previews.
type DiffPort interface {
	ComputeDiff(baseName, headName string, base, head []byte) string
}

// ReleaseNotifierPort abstracts the optional post-tag notification, e.g.
// creating a GitHub release for a tag. Failures are advisory.
type ReleaseNotifierPort interface {
	CreateRelease(ctx context.Context, tag string, entry domain.ChangelogEntry) error
}
