// Package npmcli implements the registry publisher by shelling out to the
// npm CLI.
package npmcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jgrierson/monopub/internal/release/domain"
	"github.com/jgrierson/monopub/internal/release/ports"
)

// Adapter implements ports.RegistryPort. Publishing is not transactional
// across packages: a failure for one package never rolls back packages
// already published, which is an accepted property of the registry model.
type Adapter struct {
	npmBin  string
	repoDir string
	logger  *slog.Logger
}

// New creates an npm adapter rooted at the repository directory. It verifies
// that the npm binary is available on PATH at construction time.
func New(repoDir string, logger *slog.Logger) (*Adapter, error) {
	npmBin, err := exec.LookPath("npm")
	if err != nil {
		return nil, fmt.Errorf("npm binary not found: %w", err)
	}
	return &Adapter{npmBin: npmBin, repoDir: repoDir, logger: logger}, nil
}

// Publish runs `npm publish` for the package. A registry override is exported
// through npm_config_registry and also scopes the auth-token environment
// entry, so the token is namespaced to the registry it authenticates. In
// dry-run mode the intended command is logged and nothing is executed.
func (a *Adapter) Publish(ctx context.Context, pkg domain.Package, opts ports.PublishOptions) error {
	args := []string{"publish"}
	if opts.DistTag != "" {
		args = append(args, "--tag", opts.DistTag)
	}
	if opts.Force {
		args = append(args, "--force")
	}

	env := publishEnv(opts.Registry, opts.AuthToken)
	pkgDir := filepath.Join(a.repoDir, pkg.Dir)

	if opts.DryRun {
		a.logger.Info("dry run, would execute",
			"command", a.npmBin+" "+strings.Join(args, " "),
			"dir", pkgDir, "registry", opts.Registry)
		return nil
	}

	//nolint:gosec // G204: arguments come from workspace config and CLI flags
	cmd := exec.CommandContext(ctx, a.npmBin, args...)
	cmd.Dir = pkgDir
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("npm publish failed: %w\nstderr: %s", err, stderr.String())
	}
	a.logger.Debug("npm publish output", "package", pkg.Name, "output", stdout.String())
	return nil
}

// VersionExists queries the registry for all published versions of the
// package and reports whether the current local version is among them. A
// package the registry has never seen reports false rather than an error.
func (a *Adapter) VersionExists(ctx context.Context, pkg domain.Package, registry string) (bool, error) {
	//nolint:gosec // G204: package name comes from workspace config
	cmd := exec.CommandContext(ctx, a.npmBin, "view", pkg.Name, "versions", "--json")
	cmd.Dir = filepath.Join(a.repoDir, pkg.Dir)
	cmd.Env = publishEnv(registry, "")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		// npm reports E404 for a package with no published versions yet.
		if strings.Contains(stderr.String(), "E404") || strings.Contains(stdout.String(), "E404") {
			return false, nil
		}
		return false, fmt.Errorf("npm view failed: %w\nstderr: %s", err, stderr.String())
	}

	versions, err := parseVersions(stdout.Bytes())
	if err != nil {
		return false, fmt.Errorf("parsing npm view output for %s: %w", pkg.Name, err)
	}
	for _, v := range versions {
		if v == pkg.Version {
			return true, nil
		}
	}
	return false, nil
}

// parseVersions handles both shapes npm emits: a JSON array for packages
// with several versions and a bare string for packages with exactly one.
func parseVersions(out []byte) ([]string, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, nil
	}
	var many []string
	if err := json.Unmarshal(out, &many); err == nil {
		return many, nil
	}
	var one string
	if err := json.Unmarshal(out, &one); err == nil {
		return []string{one}, nil
	}
	return nil, fmt.Errorf("unexpected output %q", out)
}

// publishEnv builds the process environment for an npm invocation. The
// registry override sets the default registry and namespaces the auth token
// to that registry's host and path.
func publishEnv(registry, authToken string) []string {
	env := os.Environ()
	scope := "registry.npmjs.org/"
	if registry != "" {
		env = append(env, "npm_config_registry="+registry)
		scope = strings.TrimPrefix(strings.TrimPrefix(registry, "https:"), "http:")
		scope = strings.TrimLeft(scope, "/")
		if !strings.HasSuffix(scope, "/") {
			scope += "/"
		}
	}
	if authToken != "" {
		env = append(env, fmt.Sprintf("npm_config_//%s:_authToken=%s", scope, authToken))
	}
	return env
}
