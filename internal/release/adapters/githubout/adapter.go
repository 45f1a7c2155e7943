// Package githubout creates GitHub releases for tags produced by a publish
// run. The integration is optional and advisory: a failure never affects the
// release itself.
package githubout

import (
	"context"
	"fmt"
	"log/slog"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/jgrierson/monopub/internal/release/domain"
)

// Adapter implements ports.ReleaseNotifierPort via the GitHub Releases API.
type Adapter struct {
	client *gogithub.Client
	owner  string
	repo   string
	logger *slog.Logger
}

// New creates a GitHub release adapter authenticated with a personal access
// token.
func New(token, owner, repo string, logger *slog.Logger) *Adapter {
	return &Adapter{
		client: gogithub.NewClient(nil).WithAuthToken(token),
		owner:  owner,
		repo:   repo,
		logger: logger,
	}
}

// CreateRelease publishes a GitHub release pointing at the tag.
func (a *Adapter) CreateRelease(ctx context.Context, tag string, entry domain.ChangelogEntry) error {
	body := fmt.Sprintf("%s release %s", entry.ChangeType, entry.Version)
	if entry.Comment != "" {
		body = entry.Comment
	}

	release, _, err := a.client.Repositories.CreateRelease(ctx, a.owner, a.repo, &gogithub.RepositoryRelease{
		TagName: gogithub.Ptr(tag),
		Name:    gogithub.Ptr(tag),
		Body:    gogithub.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("creating github release for %s: %w", tag, err)
	}
	a.logger.Info("github release created", "tag", tag, "url", release.GetHTMLURL())
	return nil
}
