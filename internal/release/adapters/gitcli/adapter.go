// Package gitcli implements the source-control gateway by shelling out to
// the git CLI against an explicit repository directory.
package gitcli

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Adapter implements ports.SourceControlPort. The repository directory is an
// explicit handle passed to every git invocation (-C) rather than ambient
// process state; the adapter assumes exclusive ownership of the checkout for
// the duration of a run.
type Adapter struct {
	gitBin  string
	repoDir string
}

// New creates a git adapter for the given repository directory. It verifies
// that the git binary is available on PATH at construction time.
func New(repoDir string) (*Adapter, error) {
	gitBin, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("git binary not found: %w", err)
	}
	return &Adapter{gitBin: gitBin, repoDir: repoDir}, nil
}

// run executes one git command and returns its combined output. Errors
// include the command output since git reports the useful detail there.
func (a *Adapter) run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-C", a.repoDir}, args...)
	//nolint:gosec // G204: arguments are derived from workspace config, not user input
	cmd := exec.CommandContext(ctx, a.gitBin, full...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w\noutput: %s", args[0], err, output)
	}
	return string(output), nil
}

// CurrentBranch returns the checked-out branch name.
func (a *Adapter) CurrentBranch(ctx context.Context) (string, error) {
	out, err := a.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// EnsureCleanTree fails when the working tree or index has uncommitted
// changes. It is the pre-mutation policy check.
func (a *Adapter) EnsureCleanTree(ctx context.Context) error {
	out, err := a.run(ctx, "status", "--porcelain")
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) != "" {
		return fmt.Errorf("working tree has uncommitted changes:\n%s", out)
	}
	return nil
}

// CheckoutNew creates and checks out a new branch off the current one.
func (a *Adapter) CheckoutNew(ctx context.Context, branch string) error {
	_, err := a.run(ctx, "checkout", "-b", branch)
	return err
}

// Checkout switches to an existing branch.
func (a *Adapter) Checkout(ctx context.Context, branch string) error {
	_, err := a.run(ctx, "checkout", branch)
	return err
}

// StageAll stages every change in the working tree.
func (a *Adapter) StageAll(ctx context.Context) error {
	_, err := a.run(ctx, "add", "-A")
	return err
}

// Commit records the staged changes.
func (a *Adapter) Commit(ctx context.Context, message string) error {
	_, err := a.run(ctx, "commit", "-m", message)
	return err
}

// Push pushes the named branch to origin.
func (a *Adapter) Push(ctx context.Context, branch string) error {
	_, err := a.run(ctx, "push", "origin", branch)
	return err
}

// Pull fast-forwards the current branch from origin.
func (a *Adapter) Pull(ctx context.Context) error {
	_, err := a.run(ctx, "pull", "--ff-only")
	return err
}

// Merge merges the named branch into the current one.
func (a *Adapter) Merge(ctx context.Context, branch string) error {
	_, err := a.run(ctx, "merge", "--no-edit", branch)
	return err
}

// Tag creates an annotated tag at HEAD.
func (a *Adapter) Tag(ctx context.Context, name, message string) error {
	_, err := a.run(ctx, "tag", "-a", name, "-m", message)
	return err
}

// PushTags pushes all local tags to origin.
func (a *Adapter) PushTags(ctx context.Context) error {
	_, err := a.run(ctx, "push", "origin", "--tags")
	return err
}

// DeleteBranch removes the branch locally and on origin. Callers treat a
// failure here as advisory.
func (a *Adapter) DeleteBranch(ctx context.Context, branch string) error {
	if _, err := a.run(ctx, "branch", "-D", branch); err != nil {
		return err
	}
	_, err := a.run(ctx, "push", "origin", "--delete", branch)
	return err
}
