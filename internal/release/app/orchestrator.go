package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jgrierson/monopub/internal/release/domain"
	"github.com/jgrierson/monopub/internal/release/ports"
)

// Orchestration step names, reported when a source-control operation fails
// so the operator knows where the state machine stopped.
const (
	StepLoadChanges      = "LoadChanges"
	StepCreateTempBranch = "CreateTempBranch"
	StepApplyAndCommit   = "ApplyAndCommit"
	StepPushTemp         = "PushTemp"
	StepPublishEach      = "PublishEach"
	StepTagPublished     = "TagPublished"
	StepPushTempTags     = "PushTempTags"
	StepCheckoutTarget   = "CheckoutTarget"
	StepPullTarget       = "PullTarget"
	StepMerge            = "Merge"
	StepPushTarget       = "PushTarget"
	StepDeleteTempBranch = "DeleteTempBranch"
)

// Orchestrator implements ports.ReleaseUseCase: one strictly sequential
// publish run over a single repository checkout. All mutation after the temp
// branch is created happens on that branch; the target branch only ever
// receives the complete, already-published release via a merge.
type Orchestrator struct {
	packages  map[string]domain.Package
	manager   *ChangeManager
	changelog ports.ChangelogPort
	git       ports.SourceControlPort
	registry  ports.RegistryPort
	notifier  ports.ReleaseNotifierPort // optional, may be nil
	logger    *slog.Logger

	tracer       trace.Tracer
	published    metric.Int64Counter
	stepDuration metric.Float64Histogram
	now          func() time.Time
}

// NewOrchestrator wires the orchestrator with its driven ports. notifier may
// be nil when no release notification target is configured.
func NewOrchestrator(
	packages []domain.Package,
	manager *ChangeManager,
	changelog ports.ChangelogPort,
	git ports.SourceControlPort,
	registry ports.RegistryPort,
	notifier ports.ReleaseNotifierPort,
	logger *slog.Logger,
	meter metric.Meter,
	tracer trace.Tracer,
) (*Orchestrator, error) {
	byName := make(map[string]domain.Package, len(packages))
	for _, p := range packages {
		byName[p.Name] = p
	}

	published, err := meter.Int64Counter("monopub.packages.published",
		metric.WithDescription("Packages successfully published to the registry"))
	if err != nil {
		return nil, fmt.Errorf("creating publish counter: %w", err)
	}
	stepDuration, err := meter.Float64Histogram("monopub.step.duration",
		metric.WithDescription("Duration of each orchestration step in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating step duration histogram: %w", err)
	}

	return &Orchestrator{
		packages:     byName,
		manager:      manager,
		changelog:    changelog,
		git:          git,
		registry:     registry,
		notifier:     notifier,
		logger:       logger,
		tracer:       tracer,
		published:    published,
		stepDuration: stepDuration,
		now:          time.Now,
	}, nil
}

// Run executes one release. With neither apply nor publish set it is a pure
// dry run; with apply it persists manifest and changelog edits in place;
// with publish it drives the full temp-branch workflow against git and the
// registry. Bulk mode (IncludeAll) bypasses change files entirely.
func (o *Orchestrator) Run(ctx context.Context, opts ports.Options) error {
	ctx, span := o.tracer.Start(ctx, "release.run")
	defer span.End()

	if err := opts.Prerelease.Validate(); err != nil {
		return err
	}

	if opts.RegenerateChangelogs {
		return o.regenerateChangelogs(ctx)
	}

	// The git policy check runs before any mutation so a failure leaves no
	// partial state.
	if opts.Apply || opts.Publish {
		if err := o.git.EnsureCleanTree(ctx); err != nil {
			return &domain.PreconditionError{Check: "clean-working-tree", Reason: err.Error()}
		}
	}

	if opts.IncludeAll {
		return o.runBulk(ctx, opts)
	}

	if err := o.manager.Load(ctx, opts.Prerelease, opts.AddCommitDetails); err != nil {
		return fmt.Errorf("%s: %w", StepLoadChanges, err)
	}
	if !o.manager.HasChanges() {
		o.logger.Info("no pending changes, nothing to publish")
		return nil
	}

	if !opts.Publish {
		// Dry run or apply-only: manifest and changelog edits happen (or are
		// previewed) in the working tree; git and the registry stay untouched.
		if err := o.manager.Apply(ctx, opts.Apply); err != nil {
			return err
		}
		if err := o.manager.UpdateChangelogs(ctx, opts.Apply); err != nil {
			return err
		}
		if !opts.Apply {
			o.logger.Info("dry run complete, no files were modified")
		}
		return nil
	}

	return o.publishRun(ctx, opts)
}

// publishRun drives the full state machine:
//
//	CreateTempBranch -> ApplyAndCommit -> PushTemp -> PublishEach ->
//	TagPublished -> PushTempTags -> CheckoutTarget -> PullTarget ->
//	Merge -> PushTarget -> DeleteTempBranch
//
// Any git failure after branch creation aborts the machine; registry
// artifacts already published are never rolled back.
func (o *Orchestrator) publishRun(ctx context.Context, opts ports.Options) error {
	// A registry override must not pollute the canonical tag namespace, so
	// tagging is suppressed whenever one is supplied, whether or not the
	// publish flag was also set.
	shouldTag := opts.Registry == ""
	tempBranch := fmt.Sprintf("publish-temp-%d", o.now().Unix())

	startBranch, err := o.git.CurrentBranch(ctx)
	if err != nil {
		return &domain.SourceControlError{Step: StepCreateTempBranch, Err: err}
	}
	o.logger.Info("starting publish run",
		"from", startBranch, "tempBranch", tempBranch, "targetBranch", opts.TargetBranch)

	if err := o.step(ctx, StepCreateTempBranch, func(ctx context.Context) error {
		return o.git.CheckoutNew(ctx, tempBranch)
	}); err != nil {
		return err
	}

	if err := o.step(ctx, StepApplyAndCommit, func(ctx context.Context) error {
		if err := o.manager.Apply(ctx, true); err != nil {
			return err
		}
		if err := o.manager.UpdateChangelogs(ctx, true); err != nil {
			return err
		}
		if err := o.git.StageAll(ctx); err != nil {
			return err
		}
		return o.git.Commit(ctx, "Applying package updates.")
	}); err != nil {
		return err
	}

	if err := o.step(ctx, StepPushTemp, func(ctx context.Context) error {
		return o.git.Push(ctx, tempBranch)
	}); err != nil {
		return err
	}

	publishedPkgs, publishFailures := o.publishEach(ctx, opts)

	if shouldTag {
		if err := o.step(ctx, StepTagPublished, func(ctx context.Context) error {
			return o.tagPublished(ctx, publishedPkgs)
		}); err != nil {
			return err
		}
		if err := o.step(ctx, StepPushTempTags, func(ctx context.Context) error {
			return o.git.PushTags(ctx)
		}); err != nil {
			return err
		}
	} else {
		o.logger.Info("registry override supplied, skipping tags", "registry", opts.Registry)
	}

	if err := o.step(ctx, StepCheckoutTarget, func(ctx context.Context) error {
		return o.git.Checkout(ctx, opts.TargetBranch)
	}); err != nil {
		return err
	}
	if err := o.step(ctx, StepPullTarget, func(ctx context.Context) error {
		return o.git.Pull(ctx)
	}); err != nil {
		return err
	}
	if err := o.step(ctx, StepMerge, func(ctx context.Context) error {
		return o.git.Merge(ctx, tempBranch)
	}); err != nil {
		return err
	}
	if err := o.step(ctx, StepPushTarget, func(ctx context.Context) error {
		return o.git.Push(ctx, opts.TargetBranch)
	}); err != nil {
		// The registry publish is not undone: the repository is now behind
		// the registry until an operator reconciles it.
		o.logger.Error("target push failed after packages were published; repository is behind the registry",
			"targetBranch", opts.TargetBranch, "error", err)
		return err
	}

	// Cleanup is advisory: the release already completed materially.
	if err := o.git.DeleteBranch(ctx, tempBranch); err != nil {
		o.logger.Warn("failed to delete temp branch", "branch", tempBranch, "error", err)
	}

	if len(publishFailures) > 0 {
		return fmt.Errorf("%d package(s) failed to publish: %v", len(publishFailures), publishFailures)
	}
	o.logger.Info("release complete", "published", len(publishedPkgs), "targetBranch", opts.TargetBranch)
	return nil
}

// publishEach publishes every bumped, publishable package in cascade order.
// A dependency must exist at its new version on the registry before any
// dependent referencing it is published, which is why the order is the
// cascade order and publishing is never concurrent. One package's failure
// does not stop the remaining publishes.
func (o *Orchestrator) publishEach(ctx context.Context, opts ports.Options) (published []domain.ChangeInfo, failures []error) {
	ctx, span := o.tracer.Start(ctx, "release."+StepPublishEach)
	defer span.End()

	for _, ci := range o.manager.Changes().Publishable() {
		pkg := o.packages[ci.PackageName]
		if !pkg.ShouldPublish {
			o.logger.Info("package not marked for publishing, skipping", "package", pkg.Name)
			continue
		}
		pkg.Version = ci.NewVersion

		err := o.registry.Publish(ctx, pkg, ports.PublishOptions{
			Registry:  opts.Registry,
			AuthToken: opts.AuthToken,
			DistTag:   opts.DistTag,
			Force:     opts.Force,
		})
		if err != nil {
			perr := &domain.PublishError{PackageName: pkg.Name, Err: err}
			o.logger.Error("registry publish failed, continuing with remaining packages", "package", pkg.Name, "error", err)
			failures = append(failures, perr)
			continue
		}
		o.published.Add(ctx, 1, metric.WithAttributes(attribute.String("package", pkg.Name)))
		o.logger.Info("published", "package", pkg.Name, "version", ci.NewVersion)
		published = append(published, ci)
	}
	return published, failures
}

// tagPublished creates one annotated tag per successfully published package
// and notifies the optional release target. Notification failures are
// advisory.
func (o *Orchestrator) tagPublished(ctx context.Context, published []domain.ChangeInfo) error {
	for _, ci := range published {
		tag := TagName(ci.PackageName, ci.NewVersion)
		if err := o.git.Tag(ctx, tag, fmt.Sprintf("%s v%s", ci.PackageName, ci.NewVersion)); err != nil {
			return err
		}
		o.logger.Info("tagged", "tag", tag)

		if o.notifier != nil {
			entry := domain.ChangelogEntry{Version: ci.NewVersion, ChangeType: ci.Type.String()}
			if err := o.notifier.CreateRelease(ctx, tag, entry); err != nil {
				o.logger.Warn("release notification failed", "tag", tag, "error", err)
			}
		}
	}
	return nil
}

func (o *Orchestrator) regenerateChangelogs(ctx context.Context) error {
	for _, pkg := range sortedPackages(o.packages) {
		if err := o.changelog.Regenerate(ctx, pkg); err != nil {
			return fmt.Errorf("regenerating changelog for %s: %w", pkg.Name, err)
		}
	}
	return nil
}

// step runs one state-machine transition under a span, recording its
// duration and wrapping failures with the step name.
func (o *Orchestrator) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "release."+name)
	defer span.End()

	start := o.now()
	err := fn(ctx)
	o.stepDuration.Record(ctx, o.now().Sub(start).Seconds(),
		metric.WithAttributes(attribute.String("step", name)))
	if err != nil {
		return &domain.SourceControlError{Step: name, Err: err}
	}
	return nil
}

// TagName is the canonical tag for a package release, e.g. "core_v2.0.0".
func TagName(pkg, version string) string {
	return pkg + "_v" + version
}
