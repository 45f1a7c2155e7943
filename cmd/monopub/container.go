package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/jgrierson/monopub/internal/platform/config"
	"github.com/jgrierson/monopub/internal/platform/logger"
	"github.com/jgrierson/monopub/internal/platform/telemetry"
	"github.com/jgrierson/monopub/internal/release/adapters/changedir"
	"github.com/jgrierson/monopub/internal/release/adapters/changelog"
	"github.com/jgrierson/monopub/internal/release/adapters/gitcli"
	"github.com/jgrierson/monopub/internal/release/adapters/githubout"
	"github.com/jgrierson/monopub/internal/release/adapters/linediff"
	"github.com/jgrierson/monopub/internal/release/adapters/manifest"
	"github.com/jgrierson/monopub/internal/release/adapters/npmcli"
	"github.com/jgrierson/monopub/internal/release/adapters/workspace"
	"github.com/jgrierson/monopub/internal/release/app"
	"github.com/jgrierson/monopub/internal/release/domain"
	"github.com/jgrierson/monopub/internal/release/ports"
)

// container holds all application dependencies for one command invocation.
type container struct {
	Config       config.Config
	Logger       *slog.Logger
	Telemetry    *telemetry.Telemetry
	RepoDir      string
	Packages     []domain.Package
	ChangeStore  *changedir.Adapter
	Orchestrator *app.Orchestrator
}

// newBaseContainer loads config, logging, and the workspace inventory,
// which is everything the lightweight commands (change, check) need.
func newBaseContainer(ctx context.Context, c *cli.Context) (*container, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log := logger.New(cfg.General.LogLevel)
	repoDir := c.String("repo-dir")

	ws := workspace.New(repoDir)
	inventory, err := ws.ReadInventory()
	if err != nil {
		return nil, err
	}
	packages, err := ws.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading workspace packages: %w", err)
	}

	return &container{
		Config:      cfg,
		Logger:      log,
		RepoDir:     repoDir,
		Packages:    packages,
		ChangeStore: changedir.New(filepath.Join(repoDir, inventory.ChangesDir)),
	}, nil
}

// newPublishContainer additionally wires the git, registry, telemetry, and
// orchestration dependencies the publish command needs.
func newPublishContainer(ctx context.Context, c *cli.Context) (*container, error) {
	ctr, err := newBaseContainer(ctx, c)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.New(ctx, ctr.Config.Telemetry.Enabled)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	ctr.Telemetry = tel

	git, err := gitcli.New(ctr.RepoDir)
	if err != nil {
		return nil, err
	}
	registry, err := npmcli.New(ctr.RepoDir, ctr.Logger)
	if err != nil {
		return nil, err
	}

	var notifier ports.ReleaseNotifierPort
	gh := ctr.Config.GitHub
	if gh.Token != "" && gh.Owner != "" && gh.Repo != "" {
		ctr.Logger.Info("github release integration enabled", "owner", gh.Owner, "repo", gh.Repo)
		notifier = githubout.New(gh.Token, gh.Owner, gh.Repo, ctr.Logger)
	}

	manifests := manifest.New(ctr.RepoDir, linediff.New())
	changelogs := changelog.New(ctr.RepoDir)
	manager := app.NewChangeManager(ctr.Packages, ctr.ChangeStore, manifests, changelogs, ctr.Logger)

	orch, err := app.NewOrchestrator(
		ctr.Packages, manager, changelogs, git, registry, notifier,
		ctr.Logger, tel.Meter, tel.Tracer,
	)
	if err != nil {
		return nil, fmt.Errorf("wiring orchestrator: %w", err)
	}
	ctr.Orchestrator = orch
	return ctr, nil
}
