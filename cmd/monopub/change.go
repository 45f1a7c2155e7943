package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/jgrierson/monopub/internal/release/domain"
)

// changeCommand returns the change command, which authors a pending
// change-request file.
func changeCommand() *cli.Command {
	return &cli.Command{
		Name:  "change",
		Usage: "Record a pending change for a package",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "package",
				Aliases:  []string{"p"},
				Usage:    "Workspace package `NAME` the change applies to",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "type",
				Aliases:  []string{"t"},
				Usage:    "Change magnitude: major, minor, patch, or dependency",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "message",
				Aliases: []string{"m"},
				Usage:   "One-line description of the change",
			},
			&cli.StringFlag{
				Name:  "author",
				Usage: "Author recorded in the changelog entry",
			},
			&cli.StringFlag{
				Name:  "commit-hash",
				Usage: "Commit hash recorded in the changelog entry",
			},
		},
		Action: runChange,
	}
}

func runChange(c *cli.Context) error {
	ctr, err := newBaseContainer(c.Context, c)
	if err != nil {
		return err
	}

	changeType, err := domain.ParseChangeType(c.String("type"))
	if err != nil {
		return err
	}
	if !changeType.RequiresRelease() {
		return fmt.Errorf("change type %q records no release", changeType)
	}

	pkgName := c.String("package")
	known := false
	for _, pkg := range ctr.Packages {
		if pkg.Name == pkgName {
			known = true
			break
		}
	}
	if !known {
		return &domain.UnknownPackageError{PackageName: pkgName}
	}

	path, err := ctr.ChangeStore.Save(c.Context, domain.ChangeRequest{
		PackageName: pkgName,
		Type:        changeType,
		Comment:     c.String("message"),
		Author:      c.String("author"),
		CommitHash:  c.String("commit-hash"),
	})
	if err != nil {
		return err
	}

	ctr.Logger.Info("change recorded", "package", pkgName, "type", changeType.String(), "file", path)
	return nil
}
