// Package remove implements "sysand remove": dropping a usage
// dependency from the root project.
package remove

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/sysand-dev/sysand-go/internal/core/project"
	"github.com/sysand-dev/sysand-go/internal/core/store"
	"github.com/sysand-dev/sysand-go/internal/core/workspace"
)

// RemoveCommand defines the structure for the "remove" command.
func RemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Drops a usage dependency from the current project",
		ArgsUsage: "<iri>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return cli.Exit("Error: <iri> argument is required.", 1)
			}
			resource := c.Args().First()

			root, err := workspace.DiscoverFromCwd()
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
			}

			p, err := project.Open(c.Context, store.NewLocalDir(root))
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
			}
			if err := p.RemoveUsage(c.Context, resource); err != nil {
				return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
			}

			fmt.Printf("Removed usage %q.\n", resource)
			return nil
		},
	}
}