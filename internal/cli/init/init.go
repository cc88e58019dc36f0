// Package initcmd implements "sysand init": scaffolding a new project
// descriptor pair in the current directory.
package initcmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/sysand-dev/sysand-go/internal/core/project"
	"github.com/sysand-dev/sysand-go/internal/core/store"
)

// Command defines the structure for the "init" command.
var Command = &cli.Command{
	Name:      "init",
	Usage:     "Creates a new project descriptor pair in the current directory",
	ArgsUsage: "<name>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "version",
			Usage: "Initial version for the project",
			Value: "0.1.0",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return cli.Exit("Error: <name> argument is required.", 1)
		}
		name := c.Args().First()
		version := c.String("version")

		s := store.NewLocalDir(".")
		if _, err := project.Init(c.Context, s, name, version); err != nil {
			return cli.Exit(fmt.Sprintf("Error: failed to initialise project: %v", err), 1)
		}

		fmt.Printf("Initialised %q at version %s.\n", name, version)
		return nil
	},
}
