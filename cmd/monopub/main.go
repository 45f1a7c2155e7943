// Package main provides the monopub CLI: coordinated version bumps and
// registry publishing for interdependent packages in a monorepo.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const version = "0.3.0"

func main() {
	app := &cli.App{
		Name:    "monopub",
		Usage:   "Coordinated release of interdependent monorepo packages",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  "repo-dir",
				Usage: "Path to the repository checkout",
				Value: ".",
			},
		},
		Commands: []*cli.Command{
			publishCommand(),
			changeCommand(),
			checkCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
