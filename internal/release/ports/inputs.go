package ports

import (
	"context"

	"github.com/jgrierson/monopub/internal/release/domain"
)

// Options carries one publish run's configuration, resolved from CLI flags
// and the tool config file.
type Options struct {
	Apply                bool // persist manifest/changelog edits
	Publish              bool // drive the full branch/publish/tag/merge workflow
	TargetBranch         string
	Registry             string // registry URL override; suppresses tagging when set
	AuthToken            string
	DistTag              string
	IncludeAll           bool // bulk re-publish mode, bypasses change files
	VersionPolicy        string
	Force                bool
	AddCommitDetails     bool
	RegenerateChangelogs bool
	Prerelease           domain.PrereleaseToken
}

// ReleaseUseCase is the driving port for one coordinated release run.
type ReleaseUseCase interface {
	Run(ctx context.Context, opts Options) error
}
