// Package lock implements "sysand lock": resolving the current
// project's usages into a pinned graph and writing sysand-lock.toml.
package lock

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/sysand-dev/sysand-go/internal/core/config"
	"github.com/sysand-dev/sysand-go/internal/core/credential"
	"github.com/sysand-dev/sysand-go/internal/core/fetcher"
	"github.com/sysand-dev/sysand-go/internal/core/lockfile"
	"github.com/sysand-dev/sysand-go/internal/core/project"
	"github.com/sysand-dev/sysand-go/internal/core/resolver"
	"github.com/sysand-dev/sysand-go/internal/core/store"
	"github.com/sysand-dev/sysand-go/internal/core/workspace"
)

// Command defines the structure for the "lock" command.
var Command = &cli.Command{
	Name:  "lock",
	Usage: "Resolves the current project's usages and writes sysand-lock.toml",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "include-std",
			Usage: "Include standard-library usages in the pinned graph",
		},
		&cli.BoolFlag{
			Name:  "no-index",
			Usage: "Resolve only from configured source overrides, never an index",
		},
	},
	Action: func(c *cli.Context) error {
		root, err := workspace.DiscoverFromCwd()
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}

		p, err := project.Open(c.Context, store.NewLocalDir(root))
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}

		cfg, err := config.Load(root)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: failed to load %s: %v", config.FileName, err), 1)
		}
		indexes := config.ResolveIndexes(nil, config.ReadEnv(), cfg)

		r := resolver.New(fetcher.New(root, credential.NewBrokerFromEnv()))
		graph, err := r.Resolve(c.Context, resolver.Request{
			RootUsages: p.Info.Usage,
			Indexes:    indexes,
			Overrides:  overridesFromConfig(cfg),
			IncludeStd: c.Bool("include-std"),
			NoIndex:    c.Bool("no-index"),
		})
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: resolution failed: %v", err), 1)
		}
		for _, w := range graph.Warnings {
			fmt.Println("warning:", w)
		}

		lf := lockfile.New()
		for _, pin := range graph.Pinned {
			lf.Upsert(lockfile.Project{
				Identifiers: []string{pin.IRI},
				Version:     pin.Version,
				Checksum:    pin.Checksum,
				Sources:     pin.Sources,
			})
		}
		if err := lockfile.Save(root, lf); err != nil {
			return cli.Exit(fmt.Sprintf("Error: failed to write %s: %v", lockfile.FileName, err), 1)
		}

		fmt.Printf("Wrote %s with %d pinned project(s).\n", lockfile.FileName, len(lf.Project))
		return nil
	},
}

func overridesFromConfig(cfg *config.Config) map[string][]config.SourceDescriptor {
	out := map[string][]config.SourceDescriptor{}
	for _, po := range cfg.Project {
		for _, id := range po.Identifiers {
			out[id] = po.Sources
		}
	}
	return out
}
