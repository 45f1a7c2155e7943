package main

import (
	"github.com/urfave/cli/v2"

	"github.com/jgrierson/monopub/internal/release/domain"
	"github.com/jgrierson/monopub/internal/release/ports"
)

// publishCommand returns the publish command.
func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Compute the change cascade and release it (dry run unless --apply/--publish)",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "apply",
				Usage: "Persist version and changelog edits to the working tree",
			},
			&cli.BoolFlag{
				Name:  "publish",
				Usage: "Run the full branch, publish, tag, and merge workflow",
			},
			&cli.StringFlag{
				Name:  "target-branch",
				Usage: "Branch that receives the release merge",
			},
			&cli.StringFlag{
				Name:  "registry",
				Usage: "Registry `URL` override (suppresses tagging)",
			},
			&cli.StringFlag{
				Name:  "npm-auth-token",
				Usage: "Auth token, namespaced to the target registry",
			},
			&cli.StringFlag{
				Name:  "tag",
				Usage: "Registry dist-tag for published versions",
			},
			&cli.BoolFlag{
				Name:  "include-all",
				Usage: "Bypass change files and re-publish every publishable package",
			},
			&cli.StringFlag{
				Name:  "version-policy",
				Usage: "With --include-all, only packages with this policy `NAME`",
			},
			&cli.StringFlag{
				Name:  "prerelease-name",
				Usage: "Prerelease identifier for every bumped version (exclusive with --suffix)",
			},
			&cli.StringFlag{
				Name:  "suffix",
				Usage: "Version suffix for every bumped version (exclusive with --prerelease-name)",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Publish even when the registry already has the version",
			},
			&cli.BoolFlag{
				Name:  "add-commit-details",
				Usage: "Attach change-request author and commit hash to changelog entries",
			},
			&cli.BoolFlag{
				Name:  "regenerate-changelogs",
				Usage: "Rewrite every package changelog from its existing entries and exit",
			},
		},
		Action: runPublish,
	}
}

func runPublish(c *cli.Context) error {
	ctr, err := newPublishContainer(c.Context, c)
	if err != nil {
		return err
	}
	defer func() { _ = ctr.Telemetry.Shutdown(c.Context) }()

	opts := ports.Options{
		Apply:                c.Bool("apply"),
		Publish:              c.Bool("publish"),
		TargetBranch:         stringOr(c.String("target-branch"), ctr.Config.General.TargetBranch),
		Registry:             stringOr(c.String("registry"), ctr.Config.Registry.URL),
		AuthToken:            stringOr(c.String("npm-auth-token"), ctr.Config.Registry.AuthToken),
		DistTag:              stringOr(c.String("tag"), ctr.Config.General.DistTag),
		IncludeAll:           c.Bool("include-all"),
		VersionPolicy:        c.String("version-policy"),
		Force:                c.Bool("force"),
		AddCommitDetails:     c.Bool("add-commit-details"),
		RegenerateChangelogs: c.Bool("regenerate-changelogs"),
		Prerelease: domain.PrereleaseToken{
			Name:   c.String("prerelease-name"),
			Suffix: c.String("suffix"),
		},
	}

	return ctr.Orchestrator.Run(c.Context, opts)
}

func stringOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
