package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/jgrierson/monopub/internal/release/domain"
)

// checkCommand returns the check command, which validates pending change
// files without touching anything. Intended for CI.
func checkCommand() *cli.Command {
	return &cli.Command{
		Name:   "check",
		Usage:  "Validate pending change files against the workspace",
		Action: runCheck,
	}
}

func runCheck(c *cli.Context) error {
	ctr, err := newBaseContainer(c.Context, c)
	if err != nil {
		return err
	}

	pending, err := ctr.ChangeStore.List(c.Context)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(ctr.Packages))
	for _, pkg := range ctr.Packages {
		known[pkg.Name] = true
	}

	var bad int
	for _, pc := range pending {
		if !known[pc.Request.PackageName] {
			ctr.Logger.Error("invalid change file",
				"error", &domain.UnknownPackageError{PackageName: pc.Request.PackageName, File: pc.File})
			bad++
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d invalid change file(s)", bad)
	}

	ctr.Logger.Info("change files valid", "pending", len(pending))
	return nil
}
