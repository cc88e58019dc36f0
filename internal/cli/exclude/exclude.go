// Package exclude implements "sysand exclude": removing a file from a
// project's source set.
package exclude

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/sysand-dev/sysand-go/internal/core/project"
	"github.com/sysand-dev/sysand-go/internal/core/store"
	"github.com/sysand-dev/sysand-go/internal/core/workspace"
)

// Command defines the structure for the "exclude" command.
var Command = &cli.Command{
	Name:      "exclude",
	Usage:     "Removes a file from the project's source set",
	ArgsUsage: "<path>",
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return cli.Exit("Error: <path> argument is required.", 1)
		}
		relpath := c.Args().First()

		root, err := workspace.DiscoverFromCwd()
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}

		p, err := project.Open(c.Context, store.NewLocalDir(root))
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}
		if err := p.Exclude(c.Context, relpath); err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}

		fmt.Printf("Excluded %q.\n", relpath)
		return nil
	},
}
