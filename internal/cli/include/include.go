// Package include implements "sysand include": adding a file to a
// project's source set.
package include

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/sysand-dev/sysand-go/internal/core/project"
	"github.com/sysand-dev/sysand-go/internal/core/store"
	"github.com/sysand-dev/sysand-go/internal/core/workspace"
)

// Command defines the structure for the "include" command.
var Command = &cli.Command{
	Name:      "include",
	Usage:     "Adds a file to the project's source set",
	ArgsUsage: "<path>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "checksum",
			Usage: "Record a SHA-256 checksum for the file in metadata.checksum",
			Value: true,
		},
		&cli.BoolFlag{
			Name:  "detect-symbol",
			Usage: "Detect the file's top-level symbol for metadata.index",
			Value: true,
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return cli.Exit("Error: <path> argument is required.", 1)
		}
		relpath := c.Args().First()

		root, err := workspace.DiscoverFromCwd()
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}
		content, err := os.ReadFile(relpath)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: failed to read %q: %v", relpath, err), 1)
		}

		p, err := project.Open(c.Context, store.NewLocalDir(root))
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}
		opts := project.IncludeOptions{Checksum: c.Bool("checksum"), DetectSymbol: c.Bool("detect-symbol")}
		if err := p.Include(c.Context, relpath, content, opts); err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}

		fmt.Printf("Included %q.\n", relpath)
		return nil
	},
}
