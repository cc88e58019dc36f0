// Package add implements "sysand add": declaring a usage dependency
// on the root project.
package add

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/sysand-dev/sysand-go/internal/core/project"
	"github.com/sysand-dev/sysand-go/internal/core/store"
	"github.com/sysand-dev/sysand-go/internal/core/workspace"
)

// AddCommand defines the structure for the "add" command.
var AddCommand = &cli.Command{
	Name:      "add",
	Usage:     "Declares a usage dependency on the current project",
	ArgsUsage: "<iri> [version_constraint]",
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return cli.Exit("Error: <iri> argument is required.", 1)
		}
		resource := c.Args().Get(0)
		constraint := c.Args().Get(1)

		root, err := workspace.DiscoverFromCwd()
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}

		p, err := project.Open(c.Context, store.NewLocalDir(root))
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}
		if err := p.AddUsage(c.Context, resource, constraint); err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}

		if constraint != "" {
			fmt.Printf("Added usage %q (%s).\n", resource, constraint)
		} else {
			fmt.Printf("Added usage %q.\n", resource)
		}
		return nil
	},
}
