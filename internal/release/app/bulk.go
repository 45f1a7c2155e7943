package app

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jgrierson/monopub/internal/release/domain"
	"github.com/jgrierson/monopub/internal/release/ports"
)

// runBulk is the --include-all entry path: change files are bypassed and
// every publishable package (optionally filtered by version policy) is
// re-published at its current manifest version unless the registry already
// has that version. Tags for the packages published in this run are pushed
// once after the loop, not per package.
func (o *Orchestrator) runBulk(ctx context.Context, opts ports.Options) error {
	ctx, span := o.tracer.Start(ctx, "release.bulk")
	defer span.End()

	shouldTag := opts.Registry == ""
	dryRun := !opts.Publish

	var publishedCount int
	var failures []error
	for _, pkg := range sortedPackages(o.packages) {
		if !pkg.ShouldPublish {
			continue
		}
		if opts.VersionPolicy != "" && pkg.VersionPolicy != opts.VersionPolicy {
			continue
		}

		// Force publishes unconditionally, so the idempotency probe (and any
		// failure of it) is irrelevant then.
		if !opts.Force {
			exists, err := o.registry.VersionExists(ctx, pkg, opts.Registry)
			if err != nil {
				o.logger.Error("version lookup failed, skipping package", "package", pkg.Name, "error", err)
				failures = append(failures, &domain.PublishError{PackageName: pkg.Name, Err: err})
				continue
			}
			if exists {
				o.logger.Info("skip, not updated", "package", pkg.Name, "version", pkg.Version)
				continue
			}
		}

		err := o.registry.Publish(ctx, pkg, ports.PublishOptions{
			Registry:  opts.Registry,
			AuthToken: opts.AuthToken,
			DistTag:   opts.DistTag,
			Force:     opts.Force,
			DryRun:    dryRun,
		})
		if err != nil {
			o.logger.Error("registry publish failed, continuing with remaining packages", "package", pkg.Name, "error", err)
			failures = append(failures, &domain.PublishError{PackageName: pkg.Name, Err: err})
			continue
		}
		if dryRun {
			o.logger.Info("would publish", "package", pkg.Name, "version", pkg.Version)
			continue
		}

		o.published.Add(ctx, 1, metric.WithAttributes(attribute.String("package", pkg.Name)))
		o.logger.Info("published", "package", pkg.Name, "version", pkg.Version)
		publishedCount++

		if shouldTag {
			tag := TagName(pkg.Name, pkg.Version)
			if err := o.git.Tag(ctx, tag, fmt.Sprintf("%s v%s", pkg.Name, pkg.Version)); err != nil {
				return &domain.SourceControlError{Step: StepTagPublished, Err: err}
			}
			o.logger.Info("tagged", "tag", tag)
		}
	}

	// One push for the whole batch keeps the tag set atomic relative to
	// this run and avoids a network round-trip per package.
	if publishedCount > 0 && shouldTag {
		if err := o.git.PushTags(ctx); err != nil {
			return &domain.SourceControlError{Step: StepPushTempTags, Err: err}
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("%d package(s) failed to publish: %v", len(failures), failures)
	}
	return nil
}

func sortedPackages(packages map[string]domain.Package) []domain.Package {
	names := make([]string, 0, len(packages))
	for name := range packages {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]domain.Package, 0, len(names))
	for _, name := range names {
		out = append(out, packages[name])
	}
	return out
}
