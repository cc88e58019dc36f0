// Package sources implements "sysand sources": listing the model
// files of an installed project, optionally with its transitive
// dependencies.
package sources

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/sysand-dev/sysand-go/internal/core/credential"
	"github.com/sysand-dev/sysand-go/internal/core/environment"
	"github.com/sysand-dev/sysand-go/internal/core/fetcher"
	"github.com/sysand-dev/sysand-go/internal/core/workspace"
)

const envDirName = "sysand_env"

// Command defines the structure for the "sources" command.
var Command = &cli.Command{
	Name:      "sources",
	Usage:     "Lists the model files of an installed project",
	ArgsUsage: "<iri> [version]",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "include-deps", Usage: "Union with every transitive dependency's sources"},
		&cli.BoolFlag{Name: "include-std", Usage: "Include standard-library entries"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return cli.Exit("Error: <iri> argument is required.", 1)
		}
		resource := c.Args().Get(0)
		version := c.Args().Get(1)

		root, err := workspace.DiscoverFromCwd()
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}
		envDir := filepath.Join(root, envDirName)
		env := environment.Open(envDir, fetcher.New(envDir, credential.NewBrokerFromEnv()))

		paths, missing, err := env.Sources(c.Context, resource, version, environment.SourcesOptions{
			IncludeDeps: c.Bool("include-deps"),
			IncludeStd:  c.Bool("include-std"),
		})
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		for _, m := range missing {
			fmt.Fprintf(c.App.ErrWriter, "warning: %q is not installed\n", m)
		}
		return nil
	},
}
